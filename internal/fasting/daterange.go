package fasting

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDateRange 在周期日期不满足排序不变量时返回
var ErrInvalidDateRange = errors.New("invalid period date range")

// PeriodDateRange 是单个周期的日期值对象，构造时保证以下不变量：
//  1. StartDate == FastingStartDate
//  2. EndDate == EatingEndDate
//  3. FastingStartDate < FastingEndDate
//  4. FastingEndDate <= EatingStartDate
//  5. EatingStartDate < EatingEndDate
//  6. EndDate > StartDate
type PeriodDateRange struct {
	Order            PeriodOrder
	StartDate        time.Time
	EndDate          time.Time
	FastingStartDate time.Time
	FastingEndDate   time.Time
	EatingStartDate  time.Time
	EatingEndDate    time.Time
}

// NewPeriodDateRange 校验六条不变量后构造周期日期对象。
func NewPeriodDateRange(order PeriodOrder, start, end, fastingStart, fastingEnd, eatingStart, eatingEnd time.Time) (PeriodDateRange, error) {
	r := PeriodDateRange{
		Order:            order,
		StartDate:        start,
		EndDate:          end,
		FastingStartDate: fastingStart,
		FastingEndDate:   fastingEnd,
		EatingStartDate:  eatingStart,
		EatingEndDate:    eatingEnd,
	}
	if err := r.validate(); err != nil {
		return PeriodDateRange{}, err
	}
	return r, nil
}

func (r PeriodDateRange) validate() error {
	switch {
	case !r.StartDate.Equal(r.FastingStartDate):
		return fmt.Errorf("%w: start date must equal fasting start", ErrInvalidDateRange)
	case !r.EndDate.Equal(r.EatingEndDate):
		return fmt.Errorf("%w: end date must equal eating end", ErrInvalidDateRange)
	case !r.FastingStartDate.Before(r.FastingEndDate):
		return fmt.Errorf("%w: fasting start must precede fasting end", ErrInvalidDateRange)
	case r.FastingEndDate.After(r.EatingStartDate):
		return fmt.Errorf("%w: fasting end must not exceed eating start", ErrInvalidDateRange)
	case !r.EatingStartDate.Before(r.EatingEndDate):
		return fmt.Errorf("%w: eating start must precede eating end", ErrInvalidDateRange)
	case !r.EndDate.After(r.StartDate):
		return fmt.Errorf("%w: end date must follow start date", ErrInvalidDateRange)
	}
	return nil
}

// FastingDuration 返回断食阶段的长度。
func (r PeriodDateRange) FastingDuration() time.Duration {
	return r.FastingEndDate.Sub(r.FastingStartDate)
}

// EatingDuration 返回进食窗口的长度。
func (r PeriodDateRange) EatingDuration() time.Duration {
	return r.EatingEndDate.Sub(r.EatingStartDate)
}

// OverlapWindow 是与历史 cycle 做重叠检查时使用的完整时间窗。
// 检查必须覆盖周期的整个 [StartDate, EndDate) 区间，而不仅是断食子区间，
// 用独立类型固定这一语义，避免依赖调用方自觉。
type OverlapWindow struct {
	Start time.Time
	End   time.Time
}

// Window 返回该周期用于重叠检查的完整时间窗。
func (r PeriodDateRange) Window() OverlapWindow {
	return OverlapWindow{Start: r.StartDate, End: r.EndDate}
}

// CycleDates 是落盘为历史 cycle 的断食区间。
type CycleDates struct {
	Start time.Time
	End   time.Time
}
