package fasting

import "time"

// PeriodPhase 是周期在某个时间点所处阶段的封闭和类型，
// 只会是 Scheduled / Fasting / Eating / Completed 四种之一。
// 消费方必须用 type switch 穷举全部变体，不允许 default 兜底。
type PeriodPhase interface {
	isPeriodPhase()
}

// Scheduled 表示周期尚未开始。
type Scheduled struct {
	// StartsIn 是距断食开始还有多久
	StartsIn time.Duration
}

// Fasting 表示正处于断食阶段。
type Fasting struct {
	Elapsed   time.Duration
	Remaining time.Duration
	// Percentage 是断食进度百分比，始终落在 [0,100]
	Percentage float64
}

// Eating 表示断食已完成，正处于进食窗口。
type Eating struct {
	FastingCompleted time.Duration
	EatingElapsed    time.Duration
	EatingRemaining  time.Duration
}

// Completed 表示整个周期（含进食窗口）已经结束。
type Completed struct {
	FastingDuration time.Duration
	EatingDuration  time.Duration
}

func (Scheduled) isPeriodPhase() {}
func (Fasting) isPeriodPhase()   {}
func (Eating) isPeriodPhase()    {}
func (Completed) isPeriodPhase() {}

// AssessPeriodPhase 判断周期在 now 时刻所处的阶段。
// 所有区间都是下闭上开：恰好落在边界时刻的瞬间属于后一个阶段，
// 例如 now == FastingEndDate 时返回 Eating 而非 Fasting。
func AssessPeriodPhase(period PeriodDateRange, now time.Time) PeriodPhase {
	switch {
	case now.Before(period.FastingStartDate):
		return Scheduled{StartsIn: period.FastingStartDate.Sub(now)}

	case now.Before(period.FastingEndDate):
		elapsed := now.Sub(period.FastingStartDate)
		total := period.FastingDuration()
		return Fasting{
			Elapsed:    elapsed,
			Remaining:  period.FastingEndDate.Sub(now),
			Percentage: clampPercentage(float64(elapsed) / float64(total) * 100),
		}

	case now.Before(period.EatingEndDate):
		return Eating{
			FastingCompleted: period.FastingDuration(),
			EatingElapsed:    now.Sub(period.FastingEndDate),
			EatingRemaining:  period.EatingEndDate.Sub(now),
		}

	default:
		return Completed{
			FastingDuration: period.FastingDuration(),
			EatingDuration:  period.EatingDuration(),
		}
	}
}

func clampPercentage(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// PlanProgress 是计划级进度汇总的封闭和类型。
type PlanProgress interface {
	isPlanProgress()
}

// NotStarted 表示第一个周期尚未开始。
type NotStarted struct {
	StartsIn     time.Duration
	TotalPeriods int
}

// InProgress 表示计划进行中，CurrentPeriodIndex 指向第一个未完成周期（从 0 计）。
type InProgress struct {
	CurrentPeriodIndex int
	TotalPeriods       int
	CompletedPeriods   int
	CurrentPeriodPhase PeriodPhase
}

// AllPeriodsCompleted 表示所有周期均已结束，TotalFastingTime 为各周期断食时长之和。
type AllPeriodsCompleted struct {
	TotalPeriods     int
	TotalFastingTime time.Duration
}

func (NotStarted) isPlanProgress()          {}
func (InProgress) isPlanProgress()          {}
func (AllPeriodsCompleted) isPlanProgress() {}

// AssessPlanProgress 汇总整个计划在 now 时刻的进度。
// periods 必须按 order 升序传入。空列表视作全部完成。
func AssessPlanProgress(periods []PeriodDateRange, now time.Time) PlanProgress {
	if len(periods) == 0 {
		return AllPeriodsCompleted{}
	}

	if now.Before(periods[0].FastingStartDate) {
		return NotStarted{
			StartsIn:     periods[0].FastingStartDate.Sub(now),
			TotalPeriods: len(periods),
		}
	}

	completed := 0
	var totalFasting time.Duration
	for i, period := range periods {
		if now.Before(period.EatingEndDate) {
			return InProgress{
				CurrentPeriodIndex: i,
				TotalPeriods:       len(periods),
				CompletedPeriods:   completed,
				CurrentPeriodPhase: AssessPeriodPhase(period, now),
			}
		}
		completed++
		totalFasting += period.FastingDuration()
	}

	return AllPeriodsCompleted{
		TotalPeriods:     len(periods),
		TotalFastingTime: totalFasting,
	}
}
