package repository

import (
	"context"
	"time"

	"github.com/facegate-io/facegate/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FaceProfileRepository interface {
	// Upsert stores the reference embedding for a uuid, replacing any prior
	// row. Last-write-wins; concurrent enroll/verify for the same uuid may
	// observe either version.
	Upsert(ctx context.Context, profile *domain.FaceProfile) error
	FindByUUID(ctx context.Context, uuid string) (*domain.FaceProfile, error)
}

type GormFaceProfileRepository struct{ db *gorm.DB }

func NewFaceProfileRepository(db *gorm.DB) FaceProfileRepository {
	return &GormFaceProfileRepository{db: db}
}

func (r *GormFaceProfileRepository) Upsert(ctx context.Context, profile *domain.FaceProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
	}).Create(profile).Error
}

func (r *GormFaceProfileRepository) FindByUUID(ctx context.Context, uuid string) (*domain.FaceProfile, error) {
	var p domain.FaceProfile
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
