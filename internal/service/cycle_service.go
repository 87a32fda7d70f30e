package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/fasting"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCycleNotFound 在指定 cycle 不存在或不属于当前用户时返回
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrNoActiveCycle 在没有进行中 cycle 却请求结束时返回
	ErrNoActiveCycle = errors.New("no active cycle")
	// ErrCycleInvalidRange 在 cycle 结束时间不晚于开始时间时返回
	ErrCycleInvalidRange = errors.New("cycle end must follow start")
)

// CycleService 管理独立的断食历史记录。
// cycle 有两个来源：用户手动开始/结束的断食，以及计划取消或完成时
// 由周期转换而来的历史；后者落盘后与原周期不再有任何关联。
type CycleService struct {
	db *gorm.DB
}

// CycleInput 定义手动开始断食时可配置的字段。
type CycleInput struct {
	StartDate time.Time
	Note      string
}

// NewCycleService 构造 CycleService。
func NewCycleService(gdb *gorm.DB) *CycleService {
	return &CycleService{db: gdb}
}

// Start 手动开始一次断食。同一用户同一时刻至多一条进行中 cycle。
func (s *CycleService) Start(userID uint, input CycleInput) (*db.Cycle, error) {
	activeID, err := s.activeCycleID(userID)
	if err != nil {
		return nil, err
	}
	if activeID != nil {
		return nil, fmt.Errorf("%w: cycle %d", ErrActiveCycleExists, *activeID)
	}

	cycle := db.Cycle{
		UserID:    userID,
		Reference: uuid.NewString(),
		StartDate: input.StartDate,
		Source:    db.CycleSourceManual,
		Note:      strings.TrimSpace(input.Note),
	}

	if err := s.db.Create(&cycle).Error; err != nil {
		return nil, fmt.Errorf("start cycle: %w", err)
	}
	return &cycle, nil
}

// Stop 结束进行中的断食，EndDate 取调用方传入的 now。
func (s *CycleService) Stop(userID uint, now time.Time) (*db.Cycle, error) {
	cycle, err := s.Active(userID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrNoActiveCycle
	}
	if !now.After(cycle.StartDate) {
		return nil, fmt.Errorf("%w: started %s", ErrCycleInvalidRange, cycle.StartDate)
	}

	if err := s.db.Model(cycle).Update("end_date", now).Error; err != nil {
		return nil, fmt.Errorf("stop cycle: %w", err)
	}

	cycle.EndDate = &now
	return cycle, nil
}

// Active 返回进行中的 cycle，没有时返回 (nil, nil)。
func (s *CycleService) Active(userID uint) (*db.Cycle, error) {
	var cycle db.Cycle
	err := s.db.
		Where("user_id = ? AND end_date IS NULL", userID).
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active cycle: %w", err)
	}
	return &cycle, nil
}

// Get 按 id 返回用户的 cycle。
func (s *CycleService) Get(userID, cycleID uint) (*db.Cycle, error) {
	var cycle db.Cycle
	if err := s.db.Where("user_id = ?", userID).First(&cycle, cycleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return &cycle, nil
}

// List 返回用户全部断食历史，最近开始的在前。
func (s *CycleService) List(userID uint) ([]db.Cycle, error) {
	var cycles []db.Cycle
	if err := s.db.
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// Delete 删除一条断食历史。
func (s *CycleService) Delete(userID, cycleID uint) error {
	result := s.db.Where("user_id = ?", userID).Delete(&db.Cycle{}, cycleID)
	if result.Error != nil {
		return fmt.Errorf("delete cycle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

// AnyOverlapping 检查给定时间窗是否与用户既有 cycle 相交。
// 时间窗覆盖周期的完整 [Start, End) 区间；进行中的 cycle（EndDate 为空）
// 视为延伸到未来，任何开始时间之后的窗口都算相交。
func (s *CycleService) AnyOverlapping(userID uint, windows []fasting.OverlapWindow) (bool, error) {
	for _, window := range windows {
		var count int64
		err := s.db.Model(&db.Cycle{}).
			Where("user_id = ?", userID).
			Where("start_date < ?", window.End).
			Where("(end_date IS NULL OR end_date > ?)", window.Start).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("check cycle overlap: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// activeCycleID 返回进行中 cycle 的 id，没有时返回 nil。
func (s *CycleService) activeCycleID(userID uint) (*uint, error) {
	cycle, err := s.Active(userID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, nil
	}
	return &cycle.ID, nil
}

// insertCycles 在事务内批量写入由周期转换而来的历史 cycle。
func insertCycles(tx *gorm.DB, userID uint, dates []fasting.CycleDates, source string) ([]db.Cycle, error) {
	cycles := make([]db.Cycle, 0, len(dates))
	for _, d := range dates {
		end := d.End
		cycle := db.Cycle{
			UserID:    userID,
			Reference: uuid.NewString(),
			StartDate: d.Start,
			EndDate:   &end,
			Source:    source,
		}
		if err := tx.Create(&cycle).Error; err != nil {
			return nil, fmt.Errorf("insert cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}
