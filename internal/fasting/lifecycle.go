package fasting

import (
	"cmp"
	"slices"
	"time"
)

// 本文件是生命周期决策引擎：创建、取消、完成、编辑周期四个写操作
// 各自返回一个封闭的决策和类型，要么携带可直接落盘的计算结果，
// 要么携带具体的、带数据的拒绝原因。引擎本身不做任何 I/O，
// now 与全部实体状态均由调用方显式传入，同样的输入必然得到同样的决策。

// CreationDecision 是创建计划的决策结果。
type CreationDecision interface {
	isCreationDecision()
}

// CanCreate 表示允许创建计划。
type CanCreate struct{}

// InvalidPeriodCount 表示周期数量超出允许区间。
type InvalidPeriodCount struct {
	Count int
	Min   int
	Max   int
}

// BlockedByActivePlan 表示同一用户已有进行中的计划。
type BlockedByActivePlan struct {
	PlanID uint
}

// BlockedByActiveCycle 表示同一用户已有进行中的独立断食 cycle。
type BlockedByActiveCycle struct {
	CycleID uint
}

func (CanCreate) isCreationDecision()            {}
func (InvalidPeriodCount) isCreationDecision()   {}
func (BlockedByActivePlan) isCreationDecision()  {}
func (BlockedByActiveCycle) isCreationDecision() {}

// DecidePlanCreation 判定是否允许创建新计划。
// 检查顺序固定：先周期数量，再进行中计划，最后进行中 cycle，
// 第一个不通过的检查即决定结果，后续检查不再求值。
// activePlanID/activeCycleID 为 nil 表示对应的排他条件不存在。
func DecidePlanCreation(periodCount int, activePlanID, activeCycleID *uint) CreationDecision {
	if periodCount < MinPeriodCount || periodCount > MaxPeriodCount {
		return InvalidPeriodCount{Count: periodCount, Min: MinPeriodCount, Max: MaxPeriodCount}
	}
	if activePlanID != nil {
		return BlockedByActivePlan{PlanID: *activePlanID}
	}
	if activeCycleID != nil {
		return BlockedByActiveCycle{CycleID: *activeCycleID}
	}
	return CanCreate{}
}

// CancellationDecision 是取消计划的决策结果。
type CancellationDecision interface {
	isCancellationDecision()
}

// CancelPlan 表示允许取消，携带每个周期的去向与待创建的 cycle 区间。
type CancelPlan struct {
	Results                []CancellationResult
	CompletedFastingDates  []CycleDates
	InProgressFastingDates *CycleDates
	CancelledAt            time.Time
}

// InvalidPlanState 表示计划不处于操作要求的状态。
// 取消与完成共用该拒绝变体。
type InvalidPlanState struct {
	CurrentStatus PlanStatus
}

func (CancelPlan) isCancellationDecision()       {}
func (InvalidPlanState) isCancellationDecision() {}

// DecidePlanCancellation 判定取消计划的结果。
// 只要计划仍为 InProgress，任何时刻都允许取消，
// 包括所有周期尚未开始的情况（全部 Discarded，零条 cycle）。
func DecidePlanCancellation(status PlanStatus, periods []PeriodDateRange, now time.Time) CancellationDecision {
	if status != StatusInProgress {
		return InvalidPlanState{CurrentStatus: status}
	}

	data := DecideCancellation(periods, now)
	return CancelPlan{
		Results:                data.Results,
		CompletedFastingDates:  data.CompletedFastingDates,
		InProgressFastingDates: data.InProgressFastingDates,
		CancelledAt:            now,
	}
}

// CompletionDecision 是完成计划的决策结果。
type CompletionDecision interface {
	isCompletionDecision()
}

// CanComplete 表示全部周期均已结束，每个周期产出一条完整断食区间的 cycle。
type CanComplete struct {
	CyclesToCreate []CycleDates
	CompletedAt    time.Time
}

// PeriodsNotFinished 表示仍有周期未结束，携带已结束数量与总数。
type PeriodsNotFinished struct {
	CompletedCount int
	TotalCount     int
}

func (CanComplete) isCompletionDecision()        {}
func (PeriodsNotFinished) isCompletionDecision() {}
func (InvalidPlanState) isCompletionDecision()   {}

// DecidePlanCompletion 判定完成计划的结果。
// 完成要求每个周期都满足 now >= EatingEndDate（恰在边界的瞬间算已结束）。
// 零周期的计划永远不能完成（PeriodsNotFinished{0,0}）。
// 与取消不同，完成时不存在截断：只有全部阶段走完才会成功，
// 因此每条 cycle 都使用周期的完整断食区间。
func DecidePlanCompletion(status PlanStatus, periods []PeriodDateRange, now time.Time) CompletionDecision {
	if status != StatusInProgress {
		return InvalidPlanState{CurrentStatus: status}
	}

	completed := 0
	for _, period := range periods {
		if !now.Before(period.EatingEndDate) {
			completed++
		}
	}

	if len(periods) == 0 || completed < len(periods) {
		return PeriodsNotFinished{CompletedCount: completed, TotalCount: len(periods)}
	}

	cycles := make([]CycleDates, 0, len(periods))
	for _, period := range periods {
		cycles = append(cycles, CycleDates{
			Start: period.FastingStartDate,
			End:   period.FastingEndDate,
		})
	}

	return CanComplete{CyclesToCreate: cycles, CompletedAt: now}
}

// ExistingPeriod 是编辑周期时现存周期的快照：数据库 id 加原始序号。
type ExistingPeriod struct {
	ID    uint
	Order PeriodOrder
}

// PeriodInput 是编辑周期时调用方提交的单项输入。
// ID 为 nil 表示新增周期；非 nil 表示编辑现存周期。
type PeriodInput struct {
	ID        *uint
	Durations PeriodDurations
}

// PeriodUpdate 是编辑决策产出的待写入周期：保留原 id（新增为 nil），
// 附带新的序号与整体重算后的日期。id 永不重新分配。
type PeriodUpdate struct {
	ID        *uint
	Order     PeriodOrder
	Durations PeriodDurations
	Dates     PeriodDateRange
}

// UpdateDecision 是编辑周期的决策结果。
type UpdateDecision interface {
	isUpdateDecision()
}

// CanUpdatePeriods 表示允许整体替换周期列表。
type CanUpdatePeriods struct {
	Periods []PeriodUpdate
}

// DuplicatePeriodID 表示提交的编辑项里出现了重复 id。
type DuplicatePeriodID struct {
	PeriodID uint
}

// PeriodNotInPlan 表示提交的 id 不属于该计划。
type PeriodNotInPlan struct {
	PeriodID uint
}

func (CanUpdatePeriods) isUpdateDecision()   {}
func (InvalidPeriodCount) isUpdateDecision() {}
func (DuplicatePeriodID) isUpdateDecision()  {}
func (PeriodNotInPlan) isUpdateDecision()    {}

// DecidePeriodUpdate 判定整体替换计划周期的结果。
// 输入按是否带 id 分为编辑项与新增项；校验总数、重复 id、id 归属之后，
// 最终顺序为：存活的现存周期按其原始序号排序在前，新增周期按提交顺序在后。
// 未出现在输入中的现存周期视为删除。全部日期从计划开始时间整体重算。
func DecidePeriodUpdate(planStartDate time.Time, existing []ExistingPeriod, inputs []PeriodInput) UpdateDecision {
	if len(inputs) < MinPeriodCount || len(inputs) > MaxPeriodCount {
		return InvalidPeriodCount{Count: len(inputs), Min: MinPeriodCount, Max: MaxPeriodCount}
	}

	seen := make(map[uint]struct{}, len(inputs))
	for _, input := range inputs {
		if input.ID == nil {
			continue
		}
		if _, dup := seen[*input.ID]; dup {
			return DuplicatePeriodID{PeriodID: *input.ID}
		}
		seen[*input.ID] = struct{}{}
	}

	orderByID := make(map[uint]PeriodOrder, len(existing))
	for _, period := range existing {
		orderByID[period.ID] = period.Order
	}

	for _, input := range inputs {
		if input.ID == nil {
			continue
		}
		if _, ok := orderByID[*input.ID]; !ok {
			return PeriodNotInPlan{PeriodID: *input.ID}
		}
	}

	// 存活周期按原始序号稳定排序，新增周期保持提交顺序追加在后
	edits := make([]PeriodInput, 0, len(inputs))
	additions := make([]PeriodInput, 0, len(inputs))
	for _, input := range inputs {
		if input.ID != nil {
			edits = append(edits, input)
		} else {
			additions = append(additions, input)
		}
	}
	slices.SortStableFunc(edits, func(a, b PeriodInput) int {
		return cmp.Compare(orderByID[*a.ID], orderByID[*b.ID])
	})

	ordered := append(edits, additions...)

	durations := make([]PeriodDurations, 0, len(ordered))
	for _, input := range ordered {
		durations = append(durations, input.Durations)
	}
	dates := CalculatePeriodDates(planStartDate, durations)

	updates := make([]PeriodUpdate, 0, len(ordered))
	for i, input := range ordered {
		update := PeriodUpdate{
			Order:     PeriodOrder(i + 1),
			Durations: input.Durations,
			Dates:     dates[i],
		}
		if input.ID != nil {
			id := *input.ID
			update.ID = &id
		}
		updates = append(updates, update)
	}

	return CanUpdatePeriods{Periods: updates}
}

// StartDateChanged 判断计划开始时间是否实际发生变化。
// 元数据编辑只有在开始时间变化时才需要整体重算周期日期，否则是空操作。
func StartDateChanged(current, updated time.Time) bool {
	return !current.Equal(updated)
}
