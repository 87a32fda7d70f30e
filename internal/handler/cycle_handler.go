package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/service"
	"github.com/gin-gonic/gin"
)

type cycleStartPayload struct {
	StartDate time.Time `json:"start_date"`
	Note      string    `json:"note"`
}

// StartCycle 手动开始一次断食
func (a *API) StartCycle(c *gin.Context) {
	var payload cycleStartPayload
	if !bindJSON(c, &payload, "无效的断食参数") {
		return
	}

	start := payload.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	cycle, err := a.cycles.Start(currentUserID(c), service.CycleInput{
		StartDate: start,
		Note:      payload.Note,
	})
	if err != nil {
		handleCycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cycle": cycleToPayload(cycle)})
}

// StopCycle 结束进行中的断食
func (a *API) StopCycle(c *gin.Context) {
	cycle, err := a.cycles.Stop(currentUserID(c), time.Now())
	if err != nil {
		handleCycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycle": cycleToPayload(cycle)})
}

// GetActiveCycle 返回进行中的断食，没有时 cycle 为 null
func (a *API) GetActiveCycle(c *gin.Context) {
	cycle, err := a.cycles.Active(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取进行中断食失败")
		return
	}
	if cycle == nil {
		c.JSON(http.StatusOK, gin.H{"cycle": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycle": cycleToPayload(cycle)})
}

// GetCycle 返回单条断食记录
func (a *API) GetCycle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	cycle, err := a.cycles.Get(currentUserID(c), id)
	if err != nil {
		handleCycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycle": cycleToPayload(cycle)})
}

// ListCycles 返回用户全部断食历史
func (a *API) ListCycles(c *gin.Context) {
	cycles, err := a.cycles.List(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取断食历史失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycles": cyclesToPayload(cycles)})
}

// DeleteCycle 删除一条断食记录
func (a *API) DeleteCycle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	if err := a.cycles.Delete(currentUserID(c), id); err != nil {
		handleCycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "记录已删除"})
}

func cycleToPayload(cycle *db.Cycle) gin.H {
	return gin.H{
		"id":         cycle.ID,
		"reference":  cycle.Reference,
		"start_date": cycle.StartDate,
		"end_date":   cycle.EndDate,
		"source":     cycle.Source,
		"note":       cycle.Note,
		"created_at": cycle.CreatedAt,
	}
}

func cyclesToPayload(cycles []db.Cycle) []gin.H {
	items := make([]gin.H, 0, len(cycles))
	for i := range cycles {
		items = append(items, cycleToPayload(&cycles[i]))
	}
	return items
}

func handleCycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		respondError(c, http.StatusNotFound, "断食记录不存在")
	case errors.Is(err, service.ErrNoActiveCycle):
		respondError(c, http.StatusConflict, "当前没有进行中的断食")
	case errors.Is(err, service.ErrActiveCycleExists):
		respondError(c, http.StatusConflict, "已有进行中的断食")
	case errors.Is(err, service.ErrCycleInvalidRange):
		respondError(c, http.StatusBadRequest, "结束时间必须晚于开始时间")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
