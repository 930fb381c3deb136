package models

import "time"

// Trainer is a person qualified to deliver sessions for one or more software products.
type Trainer struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

// Competency links a trainer to a software product.
type Competency struct {
	TrainerID  string `db:"trainer_id" json:"trainer_id"`
	SoftwareID string `db:"software_id" json:"software_id"`
	Level      string `db:"level" json:"level"`
	Certified  bool   `db:"certified" json:"certified"`
}
