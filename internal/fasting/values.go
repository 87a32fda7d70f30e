package fasting

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// 计划与周期的边界常量。周期数量上限对应一个月的连续周期。
const (
	MinPeriodCount = 1
	MaxPeriodCount = 31

	MinFastingDuration = 1 * time.Hour
	MaxFastingDuration = 168 * time.Hour
	MinEatingWindow    = 1 * time.Hour
	MaxEatingWindow    = 24 * time.Hour

	// quarterHour 是所有时长的最小步进单位
	quarterHour = 15 * time.Minute

	MaxPlanNameLength        = 100
	MaxPlanDescriptionLength = 500
)

var (
	// ErrFastingDurationRange 在断食时长超出 1~168 小时或不是一刻钟的整数倍时返回
	ErrFastingDurationRange = errors.New("fasting duration out of range")
	// ErrEatingWindowRange 在进食窗口超出 1~24 小时或不是一刻钟的整数倍时返回
	ErrEatingWindowRange = errors.New("eating window out of range")
	// ErrPlanNameLength 在计划名称为空或超过 100 字符时返回
	ErrPlanNameLength = errors.New("plan name length out of range")
	// ErrPlanDescriptionLength 在计划描述超过 500 字符时返回
	ErrPlanDescriptionLength = errors.New("plan description too long")
	// ErrPeriodOrderRange 在周期序号超出 1~31 时返回
	ErrPeriodOrderRange = errors.New("period order out of range")
)

// PlanStatus 表示计划的生命周期状态，InProgress 为初始态，
// Completed/Cancelled 均为终态，进入终态后计划不可再变更。
type PlanStatus string

const (
	StatusInProgress PlanStatus = "in_progress"
	StatusCompleted  PlanStatus = "completed"
	StatusCancelled  PlanStatus = "cancelled"
)

// FastingDuration 是经过校验的断食时长：1~168 小时，步进一刻钟。
type FastingDuration time.Duration

// NewFastingDuration 校验并构造断食时长。
func NewFastingDuration(d time.Duration) (FastingDuration, error) {
	if d < MinFastingDuration || d > MaxFastingDuration {
		return 0, fmt.Errorf("%w: %s", ErrFastingDurationRange, d)
	}
	if d%quarterHour != 0 {
		return 0, fmt.Errorf("%w: %s is not a quarter-hour step", ErrFastingDurationRange, d)
	}
	return FastingDuration(d), nil
}

// FastingDurationFromHours 以小时数构造断食时长，供 shell 层接收小数小时输入。
func FastingDurationFromHours(hours float64) (FastingDuration, error) {
	return NewFastingDuration(durationFromHours(hours))
}

// Duration 返回底层 time.Duration。
func (d FastingDuration) Duration() time.Duration {
	return time.Duration(d)
}

// Hours 返回以小时计的时长。
func (d FastingDuration) Hours() float64 {
	return time.Duration(d).Hours()
}

// EatingWindow 是经过校验的进食窗口：1~24 小时，步进一刻钟。
type EatingWindow time.Duration

// NewEatingWindow 校验并构造进食窗口。
func NewEatingWindow(d time.Duration) (EatingWindow, error) {
	if d < MinEatingWindow || d > MaxEatingWindow {
		return 0, fmt.Errorf("%w: %s", ErrEatingWindowRange, d)
	}
	if d%quarterHour != 0 {
		return 0, fmt.Errorf("%w: %s is not a quarter-hour step", ErrEatingWindowRange, d)
	}
	return EatingWindow(d), nil
}

// EatingWindowFromHours 以小时数构造进食窗口。
func EatingWindowFromHours(hours float64) (EatingWindow, error) {
	return NewEatingWindow(durationFromHours(hours))
}

// Duration 返回底层 time.Duration。
func (w EatingWindow) Duration() time.Duration {
	return time.Duration(w)
}

// Hours 返回以小时计的窗口长度。
func (w EatingWindow) Hours() float64 {
	return time.Duration(w).Hours()
}

// durationFromHours 将小数小时换算为 Duration，按分钟取整避免浮点误差。
func durationFromHours(hours float64) time.Duration {
	minutes := hours * 60
	return time.Duration(minutes+0.5) * time.Minute
}

// PlanName 是经过长度校验的计划名称（1~100 字符）。
type PlanName string

// NewPlanName 校验并构造计划名称，长度按字符数而非字节数计。
func NewPlanName(name string) (PlanName, error) {
	length := utf8.RuneCountInString(name)
	if length < 1 || length > MaxPlanNameLength {
		return "", fmt.Errorf("%w: %d characters", ErrPlanNameLength, length)
	}
	return PlanName(name), nil
}

// String 返回名称原文。
func (n PlanName) String() string {
	return string(n)
}

// PlanDescription 是经过长度校验的计划描述（最多 500 字符，可为空）。
type PlanDescription string

// NewPlanDescription 校验并构造计划描述。
func NewPlanDescription(description string) (PlanDescription, error) {
	if length := utf8.RuneCountInString(description); length > MaxPlanDescriptionLength {
		return "", fmt.Errorf("%w: %d characters", ErrPlanDescriptionLength, length)
	}
	return PlanDescription(description), nil
}

// String 返回描述原文。
func (d PlanDescription) String() string {
	return string(d)
}

// PeriodOrder 是周期在计划内的 1 起始序号。
type PeriodOrder int

// NewPeriodOrder 校验并构造周期序号。
func NewPeriodOrder(order int) (PeriodOrder, error) {
	if order < MinPeriodCount || order > MaxPeriodCount {
		return 0, fmt.Errorf("%w: %d", ErrPeriodOrderRange, order)
	}
	return PeriodOrder(order), nil
}

// Int 返回序号数值。
func (o PeriodOrder) Int() int {
	return int(o)
}
