package db

import (
	"time"

	"gorm.io/gorm"
)

// Plan 定义了断食计划模型
// Status 只取 in_progress/completed/cancelled，由 service 层驱动核心引擎决定迁移
// 进入终态的时间分别记录在 CancelledAt/CompletedAt，仅 InProgress 状态可修改
type Plan struct {
	gorm.Model
	UserID      uint `gorm:"index"`
	User        User
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:500"`
	StartDate   time.Time
	Status      string `gorm:"index;default:in_progress"`
	CancelledAt *time.Time
	CompletedAt *time.Time
	Periods     []Period `gorm:"constraint:OnDelete:CASCADE"`
}

// Period 记录计划内单个断食周期
// Order 在计划内从 1 起且连续；六个日期字段由核心引擎整体计算，
// 不允许单独修改某一个字段，编辑时整表替换
type Period struct {
	gorm.Model
	PlanID           uint `gorm:"index;index:idx_period_plan_order,unique"`
	Order            int  `gorm:"column:period_order;index:idx_period_plan_order,unique"`
	FastingHours     float64
	EatingHours      float64
	StartDate        time.Time
	EndDate          time.Time
	FastingStartDate time.Time
	FastingEndDate   time.Time
	EatingStartDate  time.Time
	EatingEndDate    time.Time
}
