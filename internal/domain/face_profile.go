package domain

import "time"

// FaceProfile holds the aggregated reference embedding for a user. At most one
// row exists per UUID; re-enrollment overwrites it (last-write-wins).
type FaceProfile struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UUID      string    `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Embedding []float64 `gorm:"serializer:json" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Usable reports whether the profile can serve as a reference for matching.
// A row with an empty key or an empty vector is treated as "no usable
// reference" rather than an error; matching against it must deny access.
func (p *FaceProfile) Usable() bool {
	return p != nil && p.UUID != "" && len(p.Embedding) > 0
}
