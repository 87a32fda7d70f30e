package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/fasting"
	"gorm.io/gorm"
)

// ErrTemplateNotFound 在指定模板不存在或不属于当前用户时返回
var ErrTemplateNotFound = errors.New("plan template not found")

// TemplateService 管理账号级计划模板。
// 模板是计划核心的薄 CRUD 外观：只存名称、描述与时长配置，
// 实例化为计划时交给 PlanService 走完整的创建决策。
type TemplateService struct {
	db    *gorm.DB
	plans *PlanService
}

// TemplateInput 定义创建/更新模板时可配置的字段。
type TemplateInput struct {
	Name        string
	Description string
	Periods     []PeriodDurationInput
}

// NewTemplateService 构造 TemplateService。
func NewTemplateService(gdb *gorm.DB) *TemplateService {
	return &TemplateService{db: gdb, plans: NewPlanService(gdb)}
}

// Create 新建模板。数量与时长校验复用核心的值类型与创建决策。
func (s *TemplateService) Create(userID uint, input TemplateInput) (*db.PlanTemplate, error) {
	name, description, durations, err := validateTemplateInput(input)
	if err != nil {
		return nil, err
	}

	template := db.PlanTemplate{
		UserID:      userID,
		Name:        name.String(),
		Description: description.String(),
	}
	for i, d := range durations {
		template.Periods = append(template.Periods, db.TemplatePeriod{
			Order:        i + 1,
			FastingHours: d.Fasting.Hours(),
			EatingHours:  d.Eating.Hours(),
		})
	}

	if err := s.db.Create(&template).Error; err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return &template, nil
}

// Update 更新模板，周期配置整体替换。
func (s *TemplateService) Update(userID, templateID uint, input TemplateInput) (*db.PlanTemplate, error) {
	template, err := s.Get(userID, templateID)
	if err != nil {
		return nil, err
	}

	name, description, durations, err := validateTemplateInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(template).Updates(map[string]interface{}{
			"name":        name.String(),
			"description": description.String(),
		}).Error; err != nil {
			return err
		}

		if err := tx.Where("plan_template_id = ?", template.ID).Delete(&db.TemplatePeriod{}).Error; err != nil {
			return err
		}

		for i, d := range durations {
			period := db.TemplatePeriod{
				PlanTemplateID: template.ID,
				Order:          i + 1,
				FastingHours:   d.Fasting.Hours(),
				EatingHours:    d.Eating.Hours(),
			}
			if err := tx.Create(&period).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	return s.Get(userID, templateID)
}

// Get 按 id 返回用户的模板，周期按序号升序预加载。
func (s *TemplateService) Get(userID, templateID uint) (*db.PlanTemplate, error) {
	var template db.PlanTemplate
	err := s.db.
		Preload("Periods", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("period_order ASC")
		}).
		Where("user_id = ?", userID).
		First(&template, templateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &template, nil
}

// List 返回用户全部模板，最近创建的在前。
func (s *TemplateService) List(userID uint) ([]db.PlanTemplate, error) {
	var templates []db.PlanTemplate
	err := s.db.
		Preload("Periods", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("period_order ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Delete 删除模板及其周期配置。
func (s *TemplateService) Delete(userID, templateID uint) error {
	template, err := s.Get(userID, templateID)
	if err != nil {
		return err
	}

	if err := s.db.Select("Periods").Delete(template).Error; err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// Apply 以模板为蓝本从 startDate 创建新计划，走完整的创建决策（排他、重叠检查）。
func (s *TemplateService) Apply(userID, templateID uint, startDate time.Time) (*db.Plan, error) {
	template, err := s.Get(userID, templateID)
	if err != nil {
		return nil, err
	}

	input := PlanInput{
		Name:        template.Name,
		Description: template.Description,
		StartDate:   startDate,
	}
	for _, period := range template.Periods {
		input.Periods = append(input.Periods, PeriodDurationInput{
			FastingHours: period.FastingHours,
			EatingHours:  period.EatingHours,
		})
	}

	return s.plans.Create(userID, input)
}

func validateTemplateInput(input TemplateInput) (fasting.PlanName, fasting.PlanDescription, []fasting.PeriodDurations, error) {
	name, err := fasting.NewPlanName(strings.TrimSpace(input.Name))
	if err != nil {
		return "", "", nil, err
	}
	description, err := fasting.NewPlanDescription(strings.TrimSpace(input.Description))
	if err != nil {
		return "", "", nil, err
	}

	// 模板没有排他约束，数量检查复用创建决策（不传进行中的计划/cycle）
	if decision, ok := fasting.DecidePlanCreation(len(input.Periods), nil, nil).(fasting.InvalidPeriodCount); ok {
		return "", "", nil, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidPeriodCount, decision.Count, decision.Min, decision.Max)
	}

	durations, err := parseDurations(input.Periods)
	if err != nil {
		return "", "", nil, err
	}

	return name, description, durations, nil
}
