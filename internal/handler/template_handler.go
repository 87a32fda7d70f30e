package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/service"
	"github.com/gin-gonic/gin"
)

type templatePayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Periods     []periodPayload `json:"periods"`
}

type templateApplyPayload struct {
	StartDate time.Time `json:"start_date"`
}

// CreateTemplate 新建计划模板
func (a *API) CreateTemplate(c *gin.Context) {
	var payload templatePayload
	if !bindJSON(c, &payload, "无效的模板参数") {
		return
	}

	template, err := a.templates.Create(currentUserID(c), templateInput(payload))
	if err != nil {
		handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": templateToPayload(template)})
}

// UpdateTemplate 更新模板，周期配置整体替换
func (a *API) UpdateTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var payload templatePayload
	if !bindJSON(c, &payload, "无效的模板参数") {
		return
	}

	template, err := a.templates.Update(currentUserID(c), id, templateInput(payload))
	if err != nil {
		handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": templateToPayload(template)})
}

// GetTemplate 返回模板详情
func (a *API) GetTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	template, err := a.templates.Get(currentUserID(c), id)
	if err != nil {
		handleTemplateError(c, err)
		return
	}

	payload := templateToPayload(template)
	payload["description_html"] = renderMarkdown(template.Description)
	c.JSON(http.StatusOK, gin.H{"template": payload})
}

// ListTemplates 返回用户全部模板
func (a *API) ListTemplates(c *gin.Context) {
	templates, err := a.templates.List(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取模板列表失败")
		return
	}

	items := make([]gin.H, 0, len(templates))
	for i := range templates {
		items = append(items, templateToPayload(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": items})
}

// DeleteTemplate 删除模板
func (a *API) DeleteTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	if err := a.templates.Delete(currentUserID(c), id); err != nil {
		handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板已删除"})
}

// ApplyTemplate 以模板为蓝本创建新计划
func (a *API) ApplyTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var payload templateApplyPayload
	if !bindJSON(c, &payload, "无效的参数") {
		return
	}

	start := payload.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	plan, err := a.templates.Apply(currentUserID(c), id, start)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "模板不存在")
			return
		}
		handlePlanError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plan": planToPayload(plan)})
}

func templateInput(payload templatePayload) service.TemplateInput {
	input := service.TemplateInput{
		Name:        payload.Name,
		Description: payload.Description,
	}
	for _, p := range payload.Periods {
		input.Periods = append(input.Periods, service.PeriodDurationInput{
			FastingHours: p.FastingHours,
			EatingHours:  p.EatingHours,
		})
	}
	return input
}

func templateToPayload(template *db.PlanTemplate) gin.H {
	periods := make([]gin.H, 0, len(template.Periods))
	for _, period := range template.Periods {
		periods = append(periods, gin.H{
			"id":            period.ID,
			"order":         period.Order,
			"fasting_hours": period.FastingHours,
			"eating_hours":  period.EatingHours,
		})
	}

	return gin.H{
		"id":          template.ID,
		"name":        template.Name,
		"description": template.Description,
		"created_at":  template.CreatedAt,
		"periods":     periods,
	}
}

func handleTemplateError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrTemplateNotFound) {
		respondError(c, http.StatusNotFound, "模板不存在")
		return
	}
	handlePlanError(c, err)
}
