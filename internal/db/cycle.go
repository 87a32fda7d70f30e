package db

import (
	"time"

	"gorm.io/gorm"
)

// Cycle 记录一次独立的断食历史
// 既可以由用户手动开始/结束，也可以在计划取消或完成时由周期转换而来；
// 转换产生的 cycle 是独立实体，不再回指产生它的周期
// EndDate 为空表示断食仍在进行中（手动 cycle 专用）
// Reference 是对外暴露的 uuid 标识，Source 标记来源便于筛选
type Cycle struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Reference string `gorm:"size:36;uniqueIndex"`
	StartDate time.Time
	EndDate   *time.Time
	Source    string `gorm:"index"`
	Note      string `gorm:"size:500"`
}

// Cycle 来源常量
const (
	CycleSourceManual        = "manual"
	CycleSourcePlanCancelled = "plan_cancelled"
	CycleSourcePlanCompleted = "plan_completed"
)
