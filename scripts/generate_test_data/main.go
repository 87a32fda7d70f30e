package main

import (
	"fmt"
	"log"
	"time"

	"github.com/fastlog/internal/config"
	"github.com/fastlog/internal/db"
	"github.com/fastlog/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	userID := createTestUser()
	createTestTemplates(userID)
	createTestHistory(userID)
	createTestPlan(userID)

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
}

// 创建测试用户
func createTestUser() uint {
	var existing db.User
	if err := db.DB.Where("username = ?", "admin").First(&existing).Error; err == nil {
		fmt.Println("用户已存在，跳过创建")
		return existing.ID
	}

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := db.User{
		Username: "admin",
		Password: string(hashedPassword),
	}
	db.DB.Create(&admin)

	fmt.Println("✅ 测试用户创建完成")
	return admin.ID
}

// 创建常用模板
func createTestTemplates(userID uint) {
	var count int64
	db.DB.Model(&db.PlanTemplate{}).Where("user_id = ?", userID).Count(&count)
	if count > 0 {
		fmt.Println("模板已存在，跳过创建")
		return
	}

	templates := service.NewTemplateService(db.DB)
	inputs := []service.TemplateInput{
		{
			Name:        "16:8 经典",
			Description: "每天断食 16 小时，进食窗口 8 小时",
			Periods: []service.PeriodDurationInput{
				{FastingHours: 16, EatingHours: 8},
				{FastingHours: 16, EatingHours: 8},
				{FastingHours: 16, EatingHours: 8},
			},
		},
		{
			Name:        "周末 20:4",
			Description: "高强度的周末方案",
			Periods: []service.PeriodDurationInput{
				{FastingHours: 20, EatingHours: 4},
				{FastingHours: 20, EatingHours: 4},
			},
		},
	}

	for _, input := range inputs {
		if _, err := templates.Create(userID, input); err != nil {
			log.Printf("创建模板失败: %v", err)
		}
	}

	fmt.Println("✅ 模板创建完成")
}

// 创建历史断食记录
func createTestHistory(userID uint) {
	var count int64
	db.DB.Model(&db.Cycle{}).Where("user_id = ?", userID).Count(&count)
	if count > 0 {
		fmt.Println("断食历史已存在，跳过创建")
		return
	}

	cycles := service.NewCycleService(db.DB)
	for i := 10; i > 3; i-- {
		start := time.Now().AddDate(0, 0, -i).Truncate(time.Hour)
		if _, err := cycles.Start(userID, service.CycleInput{StartDate: start, Note: "手动记录"}); err != nil {
			log.Printf("开始断食失败: %v", err)
			continue
		}
		if _, err := cycles.Stop(userID, start.Add(16*time.Hour)); err != nil {
			log.Printf("结束断食失败: %v", err)
		}
	}

	fmt.Println("✅ 断食历史创建完成")
}

// 创建进行中的计划
func createTestPlan(userID uint) {
	plans := service.NewPlanService(db.DB)
	if active, err := plans.Active(userID); err == nil && active != nil {
		fmt.Println("已有进行中计划，跳过创建")
		return
	}

	input := service.PlanInput{
		Name:        "本周 16:8",
		Description: "早 8 点进食，下午 4 点后断食",
		StartDate:   time.Now().Truncate(time.Hour),
		Periods: []service.PeriodDurationInput{
			{FastingHours: 16, EatingHours: 8},
			{FastingHours: 16, EatingHours: 8},
			{FastingHours: 16, EatingHours: 8},
		},
	}
	if _, err := plans.Create(userID, input); err != nil {
		log.Printf("创建计划失败: %v", err)
		return
	}

	fmt.Println("✅ 测试计划创建完成")
}
