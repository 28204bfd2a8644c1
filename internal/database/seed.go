package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facegate-io/facegate/internal/domain"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/security"

	"gorm.io/gorm"
)

type SeedReport struct {
	CreatedUsers int  `json:"created_users"`
	Noop         bool `json:"noop"`
}

type demoUser struct {
	name     string
	username string
	email    string
	phone    string
	password string
}

var demoUsers = []demoUser{
	{"Demo User", "demo", "demo@facegate.local", "+10000000000", "demo-pass-123"},
	{"Demo Admin", "demo-admin", "demo-admin@facegate.local", "+10000000001", "admin-pass-123"},
}

// Seed inserts demo identities for local environments. Existing rows are left
// untouched; no face profile is created, enrollment stays an explicit step.
func Seed(db *gorm.DB) error {
	_, err := SeedUsers(db)
	return err
}

func SeedUsers(db *gorm.DB) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &SeedReport{}
	for _, d := range demoUsers {
		var existing domain.User
		err := db.Where("email = ?", d.email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, err
		}
		hash, err := security.HashPassword(d.password)
		if err != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, fmt.Errorf("hash seed password for %s: %w", d.username, err)
		}
		u := domain.User{
			UUID:         domain.NewUserID(),
			Username:     d.username,
			Email:        strings.ToLower(d.email),
			Name:         d.name,
			Phone:        d.phone,
			PasswordHash: hash,
		}
		if err := db.Create(&u).Error; err != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, err
		}
		report.CreatedUsers++
	}
	report.Noop = report.CreatedUsers == 0
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}
