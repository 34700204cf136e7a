package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a buyer's rating of a purchased service.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ServiceID uuid.UUID `gorm:"column:service_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
