package handler

import (
	"github.com/fastlog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	plans     *service.PlanService
	cycles    *service.CycleService
	templates *service.TemplateService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB) *API {
	return &API{
		db:        db,
		plans:     service.NewPlanService(db),
		cycles:    service.NewCycleService(db),
		templates: service.NewTemplateService(db),
	}
}
