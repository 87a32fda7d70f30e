package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/fasting"
	"github.com/fastlog/internal/service"
	"github.com/gin-gonic/gin"
)

type periodPayload struct {
	ID           *uint   `json:"id"`
	FastingHours float64 `json:"fasting_hours"`
	EatingHours  float64 `json:"eating_hours"`
}

type planCreatePayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	StartDate   time.Time       `json:"start_date"`
	Periods     []periodPayload `json:"periods"`
}

type planMetadataPayload struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
}

type planPeriodsPayload struct {
	Periods []periodPayload `json:"periods"`
}

// CreatePlan 创建断食计划
func (a *API) CreatePlan(c *gin.Context) {
	var payload planCreatePayload
	if !bindJSON(c, &payload, "无效的计划参数") {
		return
	}

	input := service.PlanInput{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   payload.StartDate,
	}
	for _, p := range payload.Periods {
		input.Periods = append(input.Periods, service.PeriodDurationInput{
			FastingHours: p.FastingHours,
			EatingHours:  p.EatingHours,
		})
	}

	plan, err := a.plans.Create(currentUserID(c), input)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plan": planToPayload(plan)})
}

// ListPlans 返回用户全部计划
func (a *API) ListPlans(c *gin.Context) {
	plans, err := a.plans.List(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取计划列表失败")
		return
	}

	items := make([]gin.H, 0, len(plans))
	for i := range plans {
		items = append(items, planToPayload(&plans[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": items})
}

// GetActivePlan 返回进行中的计划，没有时 plan 为 null
func (a *API) GetActivePlan(c *gin.Context) {
	plan, err := a.plans.Active(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取进行中计划失败")
		return
	}
	if plan == nil {
		c.JSON(http.StatusOK, gin.H{"plan": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": a.planDetail(plan, time.Now())})
}

// GetPlan 返回计划详情，附带描述 HTML 与当前进度
func (a *API) GetPlan(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	plan, err := a.plans.Get(currentUserID(c), id)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": a.planDetail(plan, time.Now())})
}

// GetPlanProgress 返回计划在当前时刻的进度汇总
func (a *API) GetPlanProgress(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	plan, err := a.plans.Get(currentUserID(c), id)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progressToPayload(a.plans.Progress(plan, time.Now()))})
}

// CancelPlan 取消计划，已完成与进行中的断食转为历史记录
func (a *API) CancelPlan(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	plan, cycles, err := a.plans.Cancel(currentUserID(c), id, time.Now())
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":   planToPayload(plan),
		"cycles": cyclesToPayload(cycles),
	})
}

// CompletePlan 完成计划，每个周期产出一条完整断食记录
func (a *API) CompletePlan(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	plan, cycles, err := a.plans.Complete(currentUserID(c), id, time.Now())
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":   planToPayload(plan),
		"cycles": cyclesToPayload(cycles),
	})
}

// UpdatePlanPeriods 整体替换计划的周期列表
func (a *API) UpdatePlanPeriods(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	var payload planPeriodsPayload
	if !bindJSON(c, &payload, "无效的周期参数") {
		return
	}

	inputs := make([]service.PeriodEditInput, 0, len(payload.Periods))
	for _, p := range payload.Periods {
		inputs = append(inputs, service.PeriodEditInput{
			ID:           p.ID,
			FastingHours: p.FastingHours,
			EatingHours:  p.EatingHours,
		})
	}

	plan, err := a.plans.UpdatePeriods(currentUserID(c), id, inputs)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": planToPayload(plan)})
}

// UpdatePlanMetadata 编辑计划名称、描述与开始时间
func (a *API) UpdatePlanMetadata(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	var payload planMetadataPayload
	if !bindJSON(c, &payload, "无效的计划参数") {
		return
	}

	plan, err := a.plans.UpdateMetadata(currentUserID(c), id, service.PlanMetadataInput{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   payload.StartDate,
	})
	if err != nil {
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": planToPayload(plan)})
}

func (a *API) planDetail(plan *db.Plan, now time.Time) gin.H {
	payload := planToPayload(plan)
	payload["description_html"] = renderMarkdown(plan.Description)
	if plan.Status == string(fasting.StatusInProgress) {
		payload["progress"] = progressToPayload(a.plans.Progress(plan, now))
	}
	return payload
}

func planToPayload(plan *db.Plan) gin.H {
	periods := make([]gin.H, 0, len(plan.Periods))
	for _, period := range plan.Periods {
		periods = append(periods, gin.H{
			"id":                 period.ID,
			"order":              period.Order,
			"fasting_hours":      period.FastingHours,
			"eating_hours":       period.EatingHours,
			"start_date":         period.StartDate,
			"end_date":           period.EndDate,
			"fasting_start_date": period.FastingStartDate,
			"fasting_end_date":   period.FastingEndDate,
			"eating_start_date":  period.EatingStartDate,
			"eating_end_date":    period.EatingEndDate,
		})
	}

	return gin.H{
		"id":           plan.ID,
		"name":         plan.Name,
		"description":  plan.Description,
		"start_date":   plan.StartDate,
		"status":       plan.Status,
		"cancelled_at": plan.CancelledAt,
		"completed_at": plan.CompletedAt,
		"created_at":   plan.CreatedAt,
		"periods":      periods,
	}
}

// progressToPayload 按进度变体序列化，state 字段区分三种情况。
func progressToPayload(progress fasting.PlanProgress) gin.H {
	switch p := progress.(type) {
	case fasting.NotStarted:
		return gin.H{
			"state":         "not_started",
			"starts_in_ms":  p.StartsIn.Milliseconds(),
			"total_periods": p.TotalPeriods,
		}
	case fasting.InProgress:
		return gin.H{
			"state":                "in_progress",
			"current_period_index": p.CurrentPeriodIndex,
			"total_periods":        p.TotalPeriods,
			"completed_periods":    p.CompletedPeriods,
			"current_period_phase": phaseToPayload(p.CurrentPeriodPhase),
		}
	case fasting.AllPeriodsCompleted:
		return gin.H{
			"state":                 "all_periods_completed",
			"total_periods":         p.TotalPeriods,
			"total_fasting_time_ms": p.TotalFastingTime.Milliseconds(),
		}
	}
	return gin.H{}
}

// phaseToPayload 按周期阶段变体序列化。
func phaseToPayload(phase fasting.PeriodPhase) gin.H {
	switch p := phase.(type) {
	case fasting.Scheduled:
		return gin.H{
			"state":        "scheduled",
			"starts_in_ms": p.StartsIn.Milliseconds(),
		}
	case fasting.Fasting:
		return gin.H{
			"state":        "fasting",
			"elapsed_ms":   p.Elapsed.Milliseconds(),
			"remaining_ms": p.Remaining.Milliseconds(),
			"percentage":   p.Percentage,
		}
	case fasting.Eating:
		return gin.H{
			"state":               "eating",
			"fasting_completed":   p.FastingCompleted,
			"eating_elapsed_ms":   p.EatingElapsed.Milliseconds(),
			"eating_remaining_ms": p.EatingRemaining.Milliseconds(),
		}
	case fasting.Completed:
		return gin.H{
			"state":               "completed",
			"fasting_duration_ms": p.FastingDuration.Milliseconds(),
			"eating_duration_ms":  p.EatingDuration.Milliseconds(),
		}
	}
	return gin.H{}
}

func handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		respondError(c, http.StatusNotFound, "计划不存在")
	case errors.Is(err, service.ErrPlanStateConflict):
		respondError(c, http.StatusConflict, "计划当前状态不允许此操作")
	case errors.Is(err, service.ErrActivePlanExists):
		respondError(c, http.StatusConflict, "已有进行中的计划")
	case errors.Is(err, service.ErrActiveCycleExists):
		respondError(c, http.StatusConflict, "已有进行中的断食")
	case errors.Is(err, service.ErrPeriodsNotFinished):
		respondError(c, http.StatusConflict, "仍有周期未结束")
	case errors.Is(err, service.ErrCycleOverlap):
		respondError(c, http.StatusConflict, "周期时间与已有断食记录重叠")
	case errors.Is(err, service.ErrInvalidPeriodCount):
		respondError(c, http.StatusBadRequest, "周期数量必须在 1~31 之间")
	case errors.Is(err, service.ErrDuplicatePeriodID):
		respondError(c, http.StatusBadRequest, "周期ID重复")
	case errors.Is(err, service.ErrPeriodNotInPlan):
		respondError(c, http.StatusBadRequest, "周期不属于该计划")
	case errors.Is(err, fasting.ErrFastingDurationRange):
		respondError(c, http.StatusBadRequest, "断食时长必须在 1~168 小时之间，步进一刻钟")
	case errors.Is(err, fasting.ErrEatingWindowRange):
		respondError(c, http.StatusBadRequest, "进食窗口必须在 1~24 小时之间，步进一刻钟")
	case errors.Is(err, fasting.ErrPlanNameLength):
		respondError(c, http.StatusBadRequest, "计划名称长度必须在 1~100 个字符之间")
	case errors.Is(err, fasting.ErrPlanDescriptionLength):
		respondError(c, http.StatusBadRequest, "计划描述不能超过 500 个字符")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
