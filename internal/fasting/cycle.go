package fasting

import "time"

// CancellationResult 是取消/完成计划时单个周期去向的封闭和类型。
// 每个周期恰好映射为其中一种结果，由 DeterminePeriodOutcome 决定。
type CancellationResult interface {
	isCancellationResult()
}

// CompletedPeriod 表示周期已整体结束，完整断食区间保留为一条历史 cycle。
type CompletedPeriod struct {
	FastingStart time.Time
	FastingEnd   time.Time
}

// PartialFastingPeriod 表示取消时正处于断食阶段，
// 断食区间按截断规则保留：保留的结束时间取 min(原定结束时间, now)。
type PartialFastingPeriod struct {
	FastingStart       time.Time
	FastingEnd         time.Time
	OriginalFastingEnd time.Time
}

// CompletedFastingInEatingPhase 表示取消时处于进食窗口，
// 断食阶段已完整结束，原样保留，不受进食中断影响。
type CompletedFastingInEatingPhase struct {
	FastingStart time.Time
	FastingEnd   time.Time
}

// DiscardedPeriod 表示周期尚未开始，不保留任何记录。
type DiscardedPeriod struct{}

func (CompletedPeriod) isCancellationResult()               {}
func (PartialFastingPeriod) isCancellationResult()          {}
func (CompletedFastingInEatingPhase) isCancellationResult() {}
func (DiscardedPeriod) isCancellationResult()               {}

// DeterminePeriodOutcome 判定周期在 now 时刻取消时的去向。
// 边界与阶段判定保持一致：下闭上开，恰在边界的瞬间按后一阶段处理。
func DeterminePeriodOutcome(period PeriodDateRange, now time.Time) CancellationResult {
	switch {
	case now.Before(period.FastingStartDate):
		return DiscardedPeriod{}

	case now.Before(period.FastingEndDate):
		return PartialFastingPeriod{
			FastingStart:       period.FastingStartDate,
			FastingEnd:         now,
			OriginalFastingEnd: period.FastingEndDate,
		}

	case now.Before(period.EatingEndDate):
		return CompletedFastingInEatingPhase{
			FastingStart: period.FastingStartDate,
			FastingEnd:   period.FastingEndDate,
		}

	default:
		return CompletedPeriod{
			FastingStart: period.FastingStartDate,
			FastingEnd:   period.FastingEndDate,
		}
	}
}

// CancellationData 汇总取消计划时需要落盘的 cycle 数据。
// CompletedFastingDates 每项对应一条历史 cycle；
// InProgressFastingDates 来自唯一一个进行中的周期（按连续性同一时刻至多一个），
// 没有进行中的周期时为 nil。
type CancellationData struct {
	Results                []CancellationResult
	CompletedFastingDates  []CycleDates
	InProgressFastingDates *CycleDates
}

// DecideCancellation 对全部周期逐一判定去向，并聚合出待创建的 cycle 区间。
// 尚未开始的周期（DiscardedPeriod）不产生任何记录。
func DecideCancellation(periods []PeriodDateRange, now time.Time) CancellationData {
	data := CancellationData{
		Results:               make([]CancellationResult, 0, len(periods)),
		CompletedFastingDates: make([]CycleDates, 0, len(periods)),
	}

	for _, period := range periods {
		outcome := DeterminePeriodOutcome(period, now)
		data.Results = append(data.Results, outcome)

		switch result := outcome.(type) {
		case CompletedPeriod:
			data.CompletedFastingDates = append(data.CompletedFastingDates, CycleDates{
				Start: result.FastingStart,
				End:   result.FastingEnd,
			})
		case PartialFastingPeriod:
			data.InProgressFastingDates = &CycleDates{
				Start: result.FastingStart,
				End:   result.FastingEnd,
			}
		case CompletedFastingInEatingPhase:
			data.InProgressFastingDates = &CycleDates{
				Start: result.FastingStart,
				End:   result.FastingEnd,
			}
		case DiscardedPeriod:
			// 未开始的周期不保留
		}
	}

	return data
}
