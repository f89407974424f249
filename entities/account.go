package entities

import (
	"time"

	"github.com/google/uuid"
)

// DistributionAccount holds the credentials for one target account on the
// distribution platform. The access token is the upload credential; a job
// queued against an account without one fails terminally.
type DistributionAccount struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username    string    `json:"username" gorm:"type:varchar(255);not null"`
	AccessToken string    `json:"access_token" gorm:"type:varchar(1000)"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (DistributionAccount) TableName() string {
	return "distribution_accounts"
}
