package dao

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
)

// allModels is the full schema, in AutoMigrate order.
func allModels() []any {
	return []any{
		&model.User{},
		&model.Team{},
		&model.Project{},
		&model.Application{},
		&model.Task{},
		&model.Evaluation{},
		&model.EvaluationItem{},
		&model.Notification{},
	}
}

// Migrate applies all pending schema migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202502170001_initial_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(allModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				for _, m := range allModels() {
					if err := tx.Migrator().DropTable(m); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			// Backfill for deployments created before the capacity
			// column carried a default.
			ID: "202502170002_project_capacity_default",
			Migrate: func(tx *gorm.DB) error {
				return tx.Model(&model.Project{}).
					Where("capacity <= 0").
					Update("capacity", model.DefaultProjectCapacity).Error
			},
			Rollback: func(_ *gorm.DB) error { return nil },
		},
		{
			// Partial unique backstops serializing concurrent application
			// submissions per team; scoped to PENDING so the allocation
			// fan-out can create ACCEPTED rows sharing team and priority.
			ID: "202509010001_application_pending_backstops",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Application{})
			},
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range []string{
					"idx_app_team_priority_pending",
					"idx_app_team_project_pending",
				} {
					if err := tx.Migrator().DropIndex(&model.Application{}, idx); err != nil {
						return err
					}
				}
				return nil
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	klog.Info("database migration finished")
	return nil
}
