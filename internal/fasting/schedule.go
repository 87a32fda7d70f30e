package fasting

import "time"

// PeriodDurations 是单个周期的时长配置：先断食、后进食。
type PeriodDurations struct {
	Fasting FastingDuration
	Eating  EatingWindow
}

// CalculatePeriodDates 从计划开始时间推算每个周期的日期区间。
// 周期严格首尾相接：第 i+1 个周期的开始时间就是第 i 个周期的结束时间，
// 连续性由构造保证，之后不再检查。空输入返回空切片。
//
// 计划开始时间变更时同样调用本函数整体重算，结果只取决于参数。
func CalculatePeriodDates(startDate time.Time, durations []PeriodDurations) []PeriodDateRange {
	periods := make([]PeriodDateRange, 0, len(durations))

	currentDate := startDate
	for i, d := range durations {
		fastingStart := currentDate
		fastingEnd := fastingStart.Add(d.Fasting.Duration())
		eatingStart := fastingEnd
		eatingEnd := eatingStart.Add(d.Eating.Duration())

		periods = append(periods, PeriodDateRange{
			Order:            PeriodOrder(i + 1),
			StartDate:        fastingStart,
			EndDate:          eatingEnd,
			FastingStartDate: fastingStart,
			FastingEndDate:   fastingEnd,
			EatingStartDate:  eatingStart,
			EatingEndDate:    eatingEnd,
		})

		currentDate = eatingEnd
	}

	return periods
}
