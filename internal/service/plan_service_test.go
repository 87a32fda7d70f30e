package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/fasting"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Plan{}, &db.Period{}, &db.Cycle{}, &db.PlanTemplate{}, &db.TemplatePeriod{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func testPlanInput(start time.Time, periods int) PlanInput {
	input := PlanInput{
		Name:      "16:8 轻断食",
		StartDate: start,
	}
	for i := 0; i < periods; i++ {
		input.Periods = append(input.Periods, PeriodDurationInput{FastingHours: 16, EatingHours: 8})
	}
	return input
}

func TestPlanServiceCreate(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 3))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if plan.Status != string(fasting.StatusInProgress) {
		t.Fatalf("expected in_progress, got %s", plan.Status)
	}
	if len(plan.Periods) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(plan.Periods))
	}

	// 周期连续且第一个周期从计划开始时间起算
	if !plan.Periods[0].StartDate.Equal(start) {
		t.Fatalf("first period must start at plan start, got %s", plan.Periods[0].StartDate)
	}
	for i := 1; i < len(plan.Periods); i++ {
		if !plan.Periods[i].StartDate.Equal(plan.Periods[i-1].EndDate) {
			t.Fatalf("period %d must start where period %d ends", i+1, i)
		}
		if plan.Periods[i].Order != i+1 {
			t.Fatalf("expected order %d, got %d", i+1, plan.Periods[i].Order)
		}
	}

	// 已有进行中计划时拒绝再次创建
	if _, err := svc.Create(1, testPlanInput(start.AddDate(0, 1, 0), 2)); !errors.Is(err, ErrActivePlanExists) {
		t.Fatalf("expected ErrActivePlanExists, got %v", err)
	}

	// 其他用户不受影响
	if _, err := svc.Create(2, testPlanInput(start, 2)); err != nil {
		t.Fatalf("expected user 2 to create a plan: %v", err)
	}
}

func TestPlanServiceCreateValidation(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	if _, err := svc.Create(1, testPlanInput(start, 0)); !errors.Is(err, ErrInvalidPeriodCount) {
		t.Fatalf("expected ErrInvalidPeriodCount, got %v", err)
	}
	if _, err := svc.Create(1, testPlanInput(start, 32)); !errors.Is(err, ErrInvalidPeriodCount) {
		t.Fatalf("expected ErrInvalidPeriodCount for 32 periods, got %v", err)
	}

	input := testPlanInput(start, 1)
	input.Periods[0].FastingHours = 0.5
	if _, err := svc.Create(1, input); !errors.Is(err, fasting.ErrFastingDurationRange) {
		t.Fatalf("expected fasting duration error, got %v", err)
	}

	input = testPlanInput(start, 1)
	input.Name = ""
	if _, err := svc.Create(1, input); !errors.Is(err, fasting.ErrPlanNameLength) {
		t.Fatalf("expected name length error, got %v", err)
	}
}

func TestPlanServiceCreateBlockedByActiveCycle(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	planSvc := NewPlanService(db.DB)
	cycleSvc := NewCycleService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	if _, err := cycleSvc.Start(1, CycleInput{StartDate: start}); err != nil {
		t.Fatalf("failed to start cycle: %v", err)
	}

	if _, err := planSvc.Create(1, testPlanInput(start.AddDate(0, 1, 0), 2)); !errors.Is(err, ErrActiveCycleExists) {
		t.Fatalf("expected ErrActiveCycleExists, got %v", err)
	}
}

func TestPlanServiceCreateOverlap(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	planSvc := NewPlanService(db.DB)
	cycleSvc := NewCycleService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	// 历史 cycle 落在第一个周期的进食窗口内：整窗检查必须拒绝
	if _, err := cycleSvc.Start(1, CycleInput{StartDate: start.Add(18 * time.Hour)}); err != nil {
		t.Fatalf("failed to start cycle: %v", err)
	}
	if _, err := cycleSvc.Stop(1, start.Add(20*time.Hour)); err != nil {
		t.Fatalf("failed to stop cycle: %v", err)
	}

	if _, err := planSvc.Create(1, testPlanInput(start, 1)); !errors.Is(err, ErrCycleOverlap) {
		t.Fatalf("expected ErrCycleOverlap, got %v", err)
	}

	// 不相交的区间可以创建
	if _, err := planSvc.Create(1, testPlanInput(start.AddDate(0, 0, 7), 1)); err != nil {
		t.Fatalf("expected non-overlapping plan to be created: %v", err)
	}
}

func TestPlanServiceCancel(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 3))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	// 第 1 周期已结束，第 2 周期断食中，第 3 周期未开始
	now := start.Add(24*time.Hour + 5*time.Hour)

	cancelled, cycles, err := svc.Cancel(1, plan.ID, now)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if cancelled.Status != string(fasting.StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(now) {
		t.Fatalf("expected cancelled_at %s, got %v", now, cancelled.CancelledAt)
	}

	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles (1 completed + 1 truncated), got %d", len(cycles))
	}
	truncated := cycles[1]
	if truncated.EndDate == nil || !truncated.EndDate.Equal(now) {
		t.Fatalf("expected truncated cycle to end at now, got %v", truncated.EndDate)
	}
	if truncated.Source != db.CycleSourcePlanCancelled {
		t.Fatalf("unexpected cycle source: %s", truncated.Source)
	}

	// 再次取消：状态冲突
	if _, _, err := svc.Cancel(1, plan.ID, now.Add(time.Hour)); !errors.Is(err, ErrPlanStateConflict) {
		t.Fatalf("expected ErrPlanStateConflict, got %v", err)
	}
}

func TestPlanServiceCancelBeforeStart(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 2))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	// 开始前取消：全部丢弃，零条 cycle
	_, cycles, err := svc.Cancel(1, plan.ID, start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %d", len(cycles))
	}
}

func TestPlanServiceComplete(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 2))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	// 仍有周期未结束
	if _, _, err := svc.Complete(1, plan.ID, start.Add(30*time.Hour)); !errors.Is(err, ErrPeriodsNotFinished) {
		t.Fatalf("expected ErrPeriodsNotFinished, got %v", err)
	}

	completed, cycles, err := svc.Complete(1, plan.ID, start.Add(100*time.Hour))
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if completed.Status != string(fasting.StatusCompleted) {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	// 完成时不存在截断，cycle 是完整断食区间
	if !cycles[0].StartDate.Equal(start) || cycles[0].EndDate == nil || !cycles[0].EndDate.Equal(start.Add(16*time.Hour)) {
		t.Fatalf("unexpected first cycle range: %s - %v", cycles[0].StartDate, cycles[0].EndDate)
	}
	if cycles[0].Source != db.CycleSourcePlanCompleted {
		t.Fatalf("unexpected cycle source: %s", cycles[0].Source)
	}

	// 完成后不可取消
	if _, _, err := svc.Cancel(1, plan.ID, start.Add(101*time.Hour)); !errors.Is(err, ErrPlanStateConflict) {
		t.Fatalf("expected ErrPlanStateConflict after completion, got %v", err)
	}
}

func TestPlanServiceUpdatePeriods(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 2))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	idA := plan.Periods[0].ID
	idB := plan.Periods[1].ID

	// 提交顺序 [B, A, 新增]：存活周期按原序号排序，新增在最后
	updated, err := svc.UpdatePeriods(1, plan.ID, []PeriodEditInput{
		{ID: &idB, FastingHours: 18, EatingHours: 6},
		{ID: &idA, FastingHours: 16, EatingHours: 8},
		{FastingHours: 20, EatingHours: 4},
	})
	if err != nil {
		t.Fatalf("UpdatePeriods returned error: %v", err)
	}

	if len(updated.Periods) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(updated.Periods))
	}
	if updated.Periods[0].ID != idA || updated.Periods[1].ID != idB {
		t.Fatalf("expected survivors ordered by original order, got %d,%d", updated.Periods[0].ID, updated.Periods[1].ID)
	}
	if updated.Periods[2].ID == idA || updated.Periods[2].ID == idB {
		t.Fatal("expected a freshly created third period")
	}
	if updated.Periods[1].FastingHours != 18 {
		t.Fatalf("expected period B fasting hours updated to 18, got %v", updated.Periods[1].FastingHours)
	}

	// 日期整体重算且保持连续
	if !updated.Periods[0].StartDate.Equal(start) {
		t.Fatalf("first period must start at plan start, got %s", updated.Periods[0].StartDate)
	}
	for i := 1; i < len(updated.Periods); i++ {
		if !updated.Periods[i].StartDate.Equal(updated.Periods[i-1].EndDate) {
			t.Fatalf("periods must stay contiguous at index %d", i)
		}
	}

	// 省略 id 视为删除
	shrunk, err := svc.UpdatePeriods(1, plan.ID, []PeriodEditInput{
		{ID: &idA, FastingHours: 16, EatingHours: 8},
	})
	if err != nil {
		t.Fatalf("UpdatePeriods returned error: %v", err)
	}
	if len(shrunk.Periods) != 1 || shrunk.Periods[0].ID != idA {
		t.Fatalf("expected only period A to survive, got %d periods", len(shrunk.Periods))
	}

	var count int64
	if err := db.DB.Model(&db.Period{}).Where("plan_id = ?", plan.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count periods: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected deleted periods removed from storage, got %d rows", count)
	}
}

func TestPlanServiceUpdatePeriodsRejections(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 1))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	id := plan.Periods[0].ID

	if _, err := svc.UpdatePeriods(1, plan.ID, nil); !errors.Is(err, ErrInvalidPeriodCount) {
		t.Fatalf("expected ErrInvalidPeriodCount, got %v", err)
	}

	if _, err := svc.UpdatePeriods(1, plan.ID, []PeriodEditInput{
		{ID: &id, FastingHours: 16, EatingHours: 8},
		{ID: &id, FastingHours: 16, EatingHours: 8},
	}); !errors.Is(err, ErrDuplicatePeriodID) {
		t.Fatalf("expected ErrDuplicatePeriodID, got %v", err)
	}

	foreign := id + 99
	if _, err := svc.UpdatePeriods(1, plan.ID, []PeriodEditInput{
		{ID: &foreign, FastingHours: 16, EatingHours: 8},
	}); !errors.Is(err, ErrPeriodNotInPlan) {
		t.Fatalf("expected ErrPeriodNotInPlan, got %v", err)
	}

	// 终态计划不可编辑
	if _, _, err := svc.Cancel(1, plan.ID, start.Add(time.Hour)); err != nil {
		t.Fatalf("failed to cancel plan: %v", err)
	}
	if _, err := svc.UpdatePeriods(1, plan.ID, []PeriodEditInput{
		{ID: &id, FastingHours: 16, EatingHours: 8},
	}); !errors.Is(err, ErrPlanStateConflict) {
		t.Fatalf("expected ErrPlanStateConflict, got %v", err)
	}
}

func TestPlanServiceUpdateMetadata(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 2))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	originalIDs := []uint{plan.Periods[0].ID, plan.Periods[1].ID}

	// 开始时间不变：纯元数据更新，周期日期保持不动
	renamed, err := svc.UpdateMetadata(1, plan.ID, PlanMetadataInput{
		Name:        "调整后的计划",
		Description: "晚间开始",
		StartDate:   start,
	})
	if err != nil {
		t.Fatalf("UpdateMetadata returned error: %v", err)
	}
	if renamed.Name != "调整后的计划" {
		t.Fatalf("expected name updated, got %s", renamed.Name)
	}
	if !renamed.Periods[0].StartDate.Equal(start) {
		t.Fatalf("expected period dates untouched, got %s", renamed.Periods[0].StartDate)
	}

	// 开始时间变化：全部周期日期整体重算，id 与时长保持不变
	newStart := start.AddDate(0, 0, 3)
	shifted, err := svc.UpdateMetadata(1, plan.ID, PlanMetadataInput{
		Name:        "调整后的计划",
		Description: "晚间开始",
		StartDate:   newStart,
	})
	if err != nil {
		t.Fatalf("UpdateMetadata returned error: %v", err)
	}

	if !shifted.StartDate.Equal(newStart) {
		t.Fatalf("expected start date %s, got %s", newStart, shifted.StartDate)
	}
	if !shifted.Periods[0].StartDate.Equal(newStart) {
		t.Fatalf("expected first period to follow new start, got %s", shifted.Periods[0].StartDate)
	}
	if !shifted.Periods[1].StartDate.Equal(shifted.Periods[0].EndDate) {
		t.Fatal("expected recomputed periods to stay contiguous")
	}
	for i, period := range shifted.Periods {
		if period.ID != originalIDs[i] {
			t.Fatalf("expected period ids preserved, got %d at index %d", period.ID, i)
		}
		if period.FastingHours != 16 || period.EatingHours != 8 {
			t.Fatalf("expected durations preserved, got %v/%v", period.FastingHours, period.EatingHours)
		}
	}
}

func TestPlanServiceProgress(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewPlanService(db.DB)
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	plan, err := svc.Create(1, testPlanInput(start, 2))
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	progress, ok := svc.Progress(plan, start.Add(4*time.Hour)).(fasting.InProgress)
	if !ok {
		t.Fatalf("expected InProgress, got %T", svc.Progress(plan, start.Add(4*time.Hour)))
	}
	if progress.CurrentPeriodIndex != 0 || progress.TotalPeriods != 2 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if _, ok := progress.CurrentPeriodPhase.(fasting.Fasting); !ok {
		t.Fatalf("expected Fasting phase, got %T", progress.CurrentPeriodPhase)
	}
}
