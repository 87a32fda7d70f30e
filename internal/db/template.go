package db

import "gorm.io/gorm"

// PlanTemplate 定义账号级计划模板
// 模板只保存名称、描述与周期时长配置，实例化为计划时由核心引擎重新计算日期
type PlanTemplate struct {
	gorm.Model
	UserID      uint             `gorm:"index"`
	Name        string           `gorm:"size:100;not null"`
	Description string           `gorm:"size:500"`
	Periods     []TemplatePeriod `gorm:"constraint:OnDelete:CASCADE"`
}

// TemplatePeriod 是模板内单个周期的时长配置
type TemplatePeriod struct {
	gorm.Model
	PlanTemplateID uint `gorm:"index"`
	Order          int  `gorm:"column:period_order"`
	FastingHours   float64
	EatingHours    float64
}
