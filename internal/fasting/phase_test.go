package fasting

import (
	"testing"
	"time"
)

func singlePeriod(t *testing.T, fastingHours, eatingHours float64) PeriodDateRange {
	t.Helper()

	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	return CalculatePeriodDates(start, mustDurations(t, [2]float64{fastingHours, eatingHours}))[0]
}

func TestAssessPeriodPhaseScheduled(t *testing.T) {
	period := singlePeriod(t, 16, 8)
	now := period.FastingStartDate.Add(-2 * time.Hour)

	phase, ok := AssessPeriodPhase(period, now).(Scheduled)
	if !ok {
		t.Fatalf("expected Scheduled, got %T", AssessPeriodPhase(period, now))
	}
	if phase.StartsIn != 2*time.Hour {
		t.Fatalf("unexpected starts-in: %s", phase.StartsIn)
	}
}

func TestAssessPeriodPhaseFasting(t *testing.T) {
	period := singlePeriod(t, 16, 8)
	now := period.FastingStartDate.Add(4 * time.Hour)

	phase, ok := AssessPeriodPhase(period, now).(Fasting)
	if !ok {
		t.Fatalf("expected Fasting, got %T", AssessPeriodPhase(period, now))
	}
	if phase.Elapsed != 4*time.Hour || phase.Remaining != 12*time.Hour {
		t.Fatalf("unexpected elapsed/remaining: %s/%s", phase.Elapsed, phase.Remaining)
	}
	if phase.Percentage != 25 {
		t.Fatalf("expected 25%%, got %v", phase.Percentage)
	}
}

func TestAssessPeriodPhaseEating(t *testing.T) {
	period := singlePeriod(t, 16, 8)
	now := period.FastingEndDate.Add(3 * time.Hour)

	phase, ok := AssessPeriodPhase(period, now).(Eating)
	if !ok {
		t.Fatalf("expected Eating, got %T", AssessPeriodPhase(period, now))
	}
	if phase.FastingCompleted != 16*time.Hour {
		t.Fatalf("unexpected fasting completed: %s", phase.FastingCompleted)
	}
	if phase.EatingElapsed != 3*time.Hour || phase.EatingRemaining != 5*time.Hour {
		t.Fatalf("unexpected eating elapsed/remaining: %s/%s", phase.EatingElapsed, phase.EatingRemaining)
	}
}

func TestAssessPeriodPhaseCompleted(t *testing.T) {
	period := singlePeriod(t, 16, 8)
	now := period.EatingEndDate.Add(time.Hour)

	phase, ok := AssessPeriodPhase(period, now).(Completed)
	if !ok {
		t.Fatalf("expected Completed, got %T", AssessPeriodPhase(period, now))
	}
	if phase.FastingDuration != 16*time.Hour || phase.EatingDuration != 8*time.Hour {
		t.Fatalf("unexpected durations: %s/%s", phase.FastingDuration, phase.EatingDuration)
	}
}

// 区间下闭上开：恰好落在边界时刻属于后一个阶段
func TestAssessPeriodPhaseBoundaries(t *testing.T) {
	period := singlePeriod(t, 16, 8)

	if _, ok := AssessPeriodPhase(period, period.FastingStartDate).(Fasting); !ok {
		t.Fatal("at fasting start the phase must be Fasting, not Scheduled")
	}
	if _, ok := AssessPeriodPhase(period, period.FastingEndDate).(Eating); !ok {
		t.Fatal("at fasting end the phase must be Eating, not Fasting")
	}
	if _, ok := AssessPeriodPhase(period, period.EatingEndDate).(Completed); !ok {
		t.Fatal("at eating end the phase must be Completed, not Eating")
	}
}

func TestAssessPlanProgressEmpty(t *testing.T) {
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	progress, ok := AssessPlanProgress(nil, now).(AllPeriodsCompleted)
	if !ok {
		t.Fatalf("expected AllPeriodsCompleted for empty plan, got %T", AssessPlanProgress(nil, now))
	}
	if progress.TotalPeriods != 0 || progress.TotalFastingTime != 0 {
		t.Fatalf("expected zero totals, got %+v", progress)
	}
}

func TestAssessPlanProgressNotStarted(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	periods := CalculatePeriodDates(start, mustDurations(t, [2]float64{16, 8}, [2]float64{16, 8}))

	progress, ok := AssessPlanProgress(periods, start.Add(-90*time.Minute)).(NotStarted)
	if !ok {
		t.Fatalf("expected NotStarted, got %T", AssessPlanProgress(periods, start.Add(-90*time.Minute)))
	}
	if progress.StartsIn != 90*time.Minute || progress.TotalPeriods != 2 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func TestAssessPlanProgressInProgress(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	periods := CalculatePeriodDates(start, mustDurations(t, [2]float64{16, 8}, [2]float64{16, 8}, [2]float64{16, 8}))

	// 第一个周期已结束，此刻处于第二个周期的断食阶段
	now := start.Add(24*time.Hour + 5*time.Hour)

	progress, ok := AssessPlanProgress(periods, now).(InProgress)
	if !ok {
		t.Fatalf("expected InProgress, got %T", AssessPlanProgress(periods, now))
	}
	if progress.CurrentPeriodIndex != 1 {
		t.Fatalf("expected current index 1, got %d", progress.CurrentPeriodIndex)
	}
	if progress.CompletedPeriods != 1 || progress.TotalPeriods != 3 {
		t.Fatalf("unexpected counters: %+v", progress)
	}
	if _, ok := progress.CurrentPeriodPhase.(Fasting); !ok {
		t.Fatalf("expected current phase Fasting, got %T", progress.CurrentPeriodPhase)
	}
}

func TestAssessPlanProgressAllCompleted(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	periods := CalculatePeriodDates(start, mustDurations(t, [2]float64{16, 8}, [2]float64{18, 6}))

	progress, ok := AssessPlanProgress(periods, start.Add(100*time.Hour)).(AllPeriodsCompleted)
	if !ok {
		t.Fatalf("expected AllPeriodsCompleted, got %T", AssessPlanProgress(periods, start.Add(100*time.Hour)))
	}
	if progress.TotalPeriods != 2 {
		t.Fatalf("expected 2 periods, got %d", progress.TotalPeriods)
	}
	if progress.TotalFastingTime != 34*time.Hour {
		t.Fatalf("expected 34h of fasting, got %s", progress.TotalFastingTime)
	}
}
