package database

import (
	"context"
	"time"

	"github.com/facegate-io/facegate/internal/domain"
	"github.com/facegate-io/facegate/internal/observability"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(
		&domain.User{},
		&domain.FaceProfile{},
	)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", status)
	observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	return err
}
