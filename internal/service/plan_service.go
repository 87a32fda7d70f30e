package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/fasting"
	"gorm.io/gorm"
)

var (
	// ErrPlanNotFound 在指定计划不存在或不属于当前用户时返回
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanStateConflict 在计划已进入终态（或被并发请求抢先迁移）时返回
	ErrPlanStateConflict = errors.New("plan is not in progress")
	// ErrActivePlanExists 在用户已有进行中计划时返回
	ErrActivePlanExists = errors.New("an active plan already exists")
	// ErrActiveCycleExists 在用户已有进行中断食 cycle 时返回
	ErrActiveCycleExists = errors.New("an active fasting cycle already exists")
	// ErrInvalidPeriodCount 在周期数量超出 1~31 时返回
	ErrInvalidPeriodCount = errors.New("invalid period count")
	// ErrDuplicatePeriodID 在编辑提交里出现重复周期 id 时返回
	ErrDuplicatePeriodID = errors.New("duplicate period id")
	// ErrPeriodNotInPlan 在编辑提交的周期 id 不属于该计划时返回
	ErrPeriodNotInPlan = errors.New("period does not belong to plan")
	// ErrPeriodsNotFinished 在仍有周期未结束却请求完成计划时返回
	ErrPeriodsNotFinished = errors.New("not all periods are finished")
	// ErrCycleOverlap 在周期时间窗与既有断食历史重叠时返回
	ErrCycleOverlap = errors.New("period dates overlap an existing cycle")
)

// PlanService 驱动断食计划的生命周期。
// 所有业务判定都交给 internal/fasting 的纯决策引擎：
// 本层只负责装载状态、传入 now、对决策结果做穷举匹配并落盘。
type PlanService struct {
	db     *gorm.DB
	cycles *CycleService
}

// PeriodDurationInput 是单个周期的时长输入（小时，步进一刻钟）。
type PeriodDurationInput struct {
	FastingHours float64
	EatingHours  float64
}

// PlanInput 定义创建计划时可配置的字段。
type PlanInput struct {
	Name        string
	Description string
	StartDate   time.Time
	Periods     []PeriodDurationInput
}

// PlanMetadataInput 定义元数据编辑可配置的字段。
// 开始时间变化时全部周期日期会整体重算。
type PlanMetadataInput struct {
	Name        string
	Description string
	StartDate   time.Time
}

// PeriodEditInput 是整体替换周期时的单项输入，ID 为 nil 表示新增。
type PeriodEditInput struct {
	ID           *uint
	FastingHours float64
	EatingHours  float64
}

// NewPlanService 构造 PlanService。
func NewPlanService(gdb *gorm.DB) *PlanService {
	return &PlanService{db: gdb, cycles: NewCycleService(gdb)}
}

// Create 创建计划及其全部周期。
// 排他与数量检查由核心引擎按固定顺序判定；周期完整时间窗
// 与既有断食历史的重叠检查需要查库，属于本层职责。
func (s *PlanService) Create(userID uint, input PlanInput) (*db.Plan, error) {
	name, err := fasting.NewPlanName(strings.TrimSpace(input.Name))
	if err != nil {
		return nil, err
	}
	description, err := fasting.NewPlanDescription(strings.TrimSpace(input.Description))
	if err != nil {
		return nil, err
	}

	durations, err := parseDurations(input.Periods)
	if err != nil {
		return nil, err
	}

	activePlanID, err := s.activePlanID(userID)
	if err != nil {
		return nil, err
	}
	activeCycleID, err := s.cycles.activeCycleID(userID)
	if err != nil {
		return nil, err
	}

	switch decision := fasting.DecidePlanCreation(len(input.Periods), activePlanID, activeCycleID).(type) {
	case fasting.CanCreate:
		// 继续创建
	case fasting.InvalidPeriodCount:
		return nil, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidPeriodCount, decision.Count, decision.Min, decision.Max)
	case fasting.BlockedByActivePlan:
		return nil, fmt.Errorf("%w: plan %d", ErrActivePlanExists, decision.PlanID)
	case fasting.BlockedByActiveCycle:
		return nil, fmt.Errorf("%w: cycle %d", ErrActiveCycleExists, decision.CycleID)
	}

	ranges := fasting.CalculatePeriodDates(input.StartDate, durations)
	if err := s.ensureNoCycleOverlap(userID, ranges); err != nil {
		return nil, err
	}

	plan := db.Plan{
		UserID:      userID,
		Name:        name.String(),
		Description: description.String(),
		StartDate:   input.StartDate,
		Status:      string(fasting.StatusInProgress),
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan).Error; err != nil {
			return err
		}
		for i, r := range ranges {
			period := periodRow(plan.ID, r, durations[i])
			if err := tx.Create(&period).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	return s.Get(userID, plan.ID)
}

// Active 返回用户当前进行中的计划，没有时返回 (nil, nil)。
func (s *PlanService) Active(userID uint) (*db.Plan, error) {
	var plan db.Plan
	err := s.planQuery(userID).
		Where("status = ?", string(fasting.StatusInProgress)).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	return &plan, nil
}

// Get 按 id 返回用户的计划，周期按序号升序预加载。
func (s *PlanService) Get(userID, planID uint) (*db.Plan, error) {
	var plan db.Plan
	if err := s.planQuery(userID).First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

// List 返回用户全部计划，最近创建的在前。
func (s *PlanService) List(userID uint) ([]db.Plan, error) {
	var plans []db.Plan
	if err := s.planQuery(userID).Order("created_at DESC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// Cancel 取消计划：核心引擎判定每个周期的去向，本层在单个事务里
// 用状态谓词更新（WHERE status = in_progress）完成终态迁移，
// 零行受影响说明并发请求已抢先迁移，报告状态冲突而非静默成功。
// 返回取消后的计划与由周期转换出的历史 cycle。
func (s *PlanService) Cancel(userID, planID uint, now time.Time) (*db.Plan, []db.Cycle, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, nil, err
	}

	decision := fasting.DecidePlanCancellation(fasting.PlanStatus(plan.Status), periodRanges(plan.Periods), now)

	var cancel fasting.CancelPlan
	switch d := decision.(type) {
	case fasting.CancelPlan:
		cancel = d
	case fasting.InvalidPlanState:
		return nil, nil, fmt.Errorf("%w: current status %s", ErrPlanStateConflict, d.CurrentStatus)
	}

	dates := cancel.CompletedFastingDates
	if cancel.InProgressFastingDates != nil {
		dates = append(dates, *cancel.InProgressFastingDates)
	}

	var created []db.Cycle
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Plan{}).
			Where("id = ? AND status = ?", plan.ID, string(fasting.StatusInProgress)).
			Updates(map[string]interface{}{
				"status":       string(fasting.StatusCancelled),
				"cancelled_at": cancel.CancelledAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPlanStateConflict
		}

		created, err = insertCycles(tx, userID, dates, db.CycleSourcePlanCancelled)
		return err
	}); err != nil {
		if errors.Is(err, ErrPlanStateConflict) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("cancel plan: %w", err)
	}

	plan, err = s.Get(userID, planID)
	return plan, created, err
}

// Complete 完成计划：要求每个周期都满足 now >= eatingEnd，
// 成功时每个周期产出一条完整断食区间的 cycle。终态迁移同样走状态谓词更新。
func (s *PlanService) Complete(userID, planID uint, now time.Time) (*db.Plan, []db.Cycle, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, nil, err
	}

	decision := fasting.DecidePlanCompletion(fasting.PlanStatus(plan.Status), periodRanges(plan.Periods), now)

	var complete fasting.CanComplete
	switch d := decision.(type) {
	case fasting.CanComplete:
		complete = d
	case fasting.PeriodsNotFinished:
		return nil, nil, fmt.Errorf("%w: %d of %d finished", ErrPeriodsNotFinished, d.CompletedCount, d.TotalCount)
	case fasting.InvalidPlanState:
		return nil, nil, fmt.Errorf("%w: current status %s", ErrPlanStateConflict, d.CurrentStatus)
	}

	var created []db.Cycle
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Plan{}).
			Where("id = ? AND status = ?", plan.ID, string(fasting.StatusInProgress)).
			Updates(map[string]interface{}{
				"status":       string(fasting.StatusCompleted),
				"completed_at": complete.CompletedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPlanStateConflict
		}

		created, err = insertCycles(tx, userID, complete.CyclesToCreate, db.CycleSourcePlanCompleted)
		return err
	}); err != nil {
		if errors.Is(err, ErrPlanStateConflict) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("complete plan: %w", err)
	}

	plan, err = s.Get(userID, planID)
	return plan, created, err
}

// UpdatePeriods 整体替换计划的周期列表。
// 省略 id 的现存周期视为删除，新增周期追加在后，全部日期重算；
// 替换在单个事务里完成，不允许逐个修改周期。
func (s *PlanService) UpdatePeriods(userID, planID uint, inputs []PeriodEditInput) (*db.Plan, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != string(fasting.StatusInProgress) {
		return nil, fmt.Errorf("%w: current status %s", ErrPlanStateConflict, plan.Status)
	}

	existing := make([]fasting.ExistingPeriod, 0, len(plan.Periods))
	for _, period := range plan.Periods {
		existing = append(existing, fasting.ExistingPeriod{
			ID:    period.ID,
			Order: fasting.PeriodOrder(period.Order),
		})
	}

	coreInputs := make([]fasting.PeriodInput, 0, len(inputs))
	for _, input := range inputs {
		durations, err := parseDurations([]PeriodDurationInput{{FastingHours: input.FastingHours, EatingHours: input.EatingHours}})
		if err != nil {
			return nil, err
		}
		coreInputs = append(coreInputs, fasting.PeriodInput{ID: input.ID, Durations: durations[0]})
	}

	decision := fasting.DecidePeriodUpdate(plan.StartDate, existing, coreInputs)

	var update fasting.CanUpdatePeriods
	switch d := decision.(type) {
	case fasting.CanUpdatePeriods:
		update = d
	case fasting.InvalidPeriodCount:
		return nil, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidPeriodCount, d.Count, d.Min, d.Max)
	case fasting.DuplicatePeriodID:
		return nil, fmt.Errorf("%w: %d", ErrDuplicatePeriodID, d.PeriodID)
	case fasting.PeriodNotInPlan:
		return nil, fmt.Errorf("%w: %d", ErrPeriodNotInPlan, d.PeriodID)
	}

	ranges := make([]fasting.PeriodDateRange, 0, len(update.Periods))
	for _, item := range update.Periods {
		ranges = append(ranges, item.Dates)
	}
	if err := s.ensureNoCycleOverlap(userID, ranges); err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		surviving := make([]uint, 0, len(update.Periods))
		for _, item := range update.Periods {
			if item.ID != nil {
				surviving = append(surviving, *item.ID)
			}
		}

		query := tx.Where("plan_id = ?", plan.ID)
		if len(surviving) > 0 {
			query = query.Where("id NOT IN ?", surviving)
		}
		if err := query.Delete(&db.Period{}).Error; err != nil {
			return err
		}

		for _, item := range update.Periods {
			row := periodRow(plan.ID, item.Dates, item.Durations)
			if item.ID != nil {
				row.ID = *item.ID
				if err := tx.Model(&db.Period{}).Where("id = ?", *item.ID).Updates(periodColumns(row)).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update periods: %w", err)
	}

	return s.Get(userID, planID)
}

// UpdateMetadata 编辑计划名称、描述与开始时间。
// 开始时间实际变化时按原有时长配置整体重算周期日期（id 与时长保持不变），
// 未变化时只更新名称与描述。
func (s *PlanService) UpdateMetadata(userID, planID uint, input PlanMetadataInput) (*db.Plan, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != string(fasting.StatusInProgress) {
		return nil, fmt.Errorf("%w: current status %s", ErrPlanStateConflict, plan.Status)
	}

	name, err := fasting.NewPlanName(strings.TrimSpace(input.Name))
	if err != nil {
		return nil, err
	}
	description, err := fasting.NewPlanDescription(strings.TrimSpace(input.Description))
	if err != nil {
		return nil, err
	}

	if !fasting.StartDateChanged(plan.StartDate, input.StartDate) {
		if err := s.db.Model(plan).Updates(map[string]interface{}{
			"name":        name.String(),
			"description": description.String(),
		}).Error; err != nil {
			return nil, fmt.Errorf("update plan metadata: %w", err)
		}
		return s.Get(userID, planID)
	}

	durations := make([]fasting.PeriodDurations, 0, len(plan.Periods))
	for _, period := range plan.Periods {
		pair, err := parseDurations([]PeriodDurationInput{{FastingHours: period.FastingHours, EatingHours: period.EatingHours}})
		if err != nil {
			return nil, err
		}
		durations = append(durations, pair[0])
	}

	ranges := fasting.CalculatePeriodDates(input.StartDate, durations)
	if err := s.ensureNoCycleOverlap(userID, ranges); err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Plan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
			"name":        name.String(),
			"description": description.String(),
			"start_date":  input.StartDate,
		}).Error; err != nil {
			return err
		}

		for i, period := range plan.Periods {
			row := periodRow(plan.ID, ranges[i], durations[i])
			if err := tx.Model(&db.Period{}).Where("id = ?", period.ID).Updates(periodColumns(row)).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update plan metadata: %w", err)
	}

	return s.Get(userID, planID)
}

// Progress 计算计划在 now 时刻的进度汇总。
func (s *PlanService) Progress(plan *db.Plan, now time.Time) fasting.PlanProgress {
	return fasting.AssessPlanProgress(periodRanges(plan.Periods), now)
}

func (s *PlanService) planQuery(userID uint) *gorm.DB {
	return s.db.
		Preload("Periods", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("period_order ASC")
		}).
		Where("user_id = ?", userID)
}

func (s *PlanService) activePlanID(userID uint) (*uint, error) {
	var plan db.Plan
	err := s.db.
		Where("user_id = ? AND status = ?", userID, string(fasting.StatusInProgress)).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("check active plan: %w", err)
	}
	return &plan.ID, nil
}

// ensureNoCycleOverlap 拒绝任何完整时间窗与既有断食历史相交的周期列表。
func (s *PlanService) ensureNoCycleOverlap(userID uint, ranges []fasting.PeriodDateRange) error {
	windows := make([]fasting.OverlapWindow, 0, len(ranges))
	for _, r := range ranges {
		windows = append(windows, r.Window())
	}

	overlapping, err := s.cycles.AnyOverlapping(userID, windows)
	if err != nil {
		return err
	}
	if overlapping {
		return ErrCycleOverlap
	}
	return nil
}

func parseDurations(inputs []PeriodDurationInput) ([]fasting.PeriodDurations, error) {
	durations := make([]fasting.PeriodDurations, 0, len(inputs))
	for _, input := range inputs {
		fastingDuration, err := fasting.FastingDurationFromHours(input.FastingHours)
		if err != nil {
			return nil, err
		}
		eatingWindow, err := fasting.EatingWindowFromHours(input.EatingHours)
		if err != nil {
			return nil, err
		}
		durations = append(durations, fasting.PeriodDurations{Fasting: fastingDuration, Eating: eatingWindow})
	}
	return durations, nil
}

func periodRanges(periods []db.Period) []fasting.PeriodDateRange {
	sorted := make([]db.Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	ranges := make([]fasting.PeriodDateRange, 0, len(sorted))
	for _, period := range sorted {
		ranges = append(ranges, fasting.PeriodDateRange{
			Order:            fasting.PeriodOrder(period.Order),
			StartDate:        period.StartDate,
			EndDate:          period.EndDate,
			FastingStartDate: period.FastingStartDate,
			FastingEndDate:   period.FastingEndDate,
			EatingStartDate:  period.EatingStartDate,
			EatingEndDate:    period.EatingEndDate,
		})
	}
	return ranges
}

func periodRow(planID uint, r fasting.PeriodDateRange, d fasting.PeriodDurations) db.Period {
	return db.Period{
		PlanID:           planID,
		Order:            r.Order.Int(),
		FastingHours:     d.Fasting.Hours(),
		EatingHours:      d.Eating.Hours(),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		FastingStartDate: r.FastingStartDate,
		FastingEndDate:   r.FastingEndDate,
		EatingStartDate:  r.EatingStartDate,
		EatingEndDate:    r.EatingEndDate,
	}
}

func periodColumns(row db.Period) map[string]interface{} {
	return map[string]interface{}{
		"period_order":       row.Order,
		"fasting_hours":      row.FastingHours,
		"eating_hours":       row.EatingHours,
		"start_date":         row.StartDate,
		"end_date":           row.EndDate,
		"fasting_start_date": row.FastingStartDate,
		"fasting_end_date":   row.FastingEndDate,
		"eating_start_date":  row.EatingStartDate,
		"eating_end_date":    row.EatingEndDate,
	}
}
