package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/kaylum54/Cliperus-V2/constant"
)

type Upload struct {
	ID           uuid.UUID             `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ClipId       uuid.UUID             `json:"clip_id" gorm:"type:uuid;not null;index:idx_uploads_clip_id"`
	AccountId    *uuid.UUID            `json:"account_id" gorm:"type:uuid;index:idx_uploads_account_id"`
	Title        string                `json:"title" gorm:"type:varchar(255)"`
	Description  string                `json:"description" gorm:"type:text"`
	Status       constant.UploadStatus `json:"status" gorm:"type:varchar(50);not null;default:'pending';index:idx_uploads_status"`
	Progress     float64               `json:"progress" gorm:"not null;default:0"`
	PartNumber   int                   `json:"part_number" gorm:"not null;default:1"`
	TotalParts   int                   `json:"total_parts" gorm:"not null;default:1"`
	VideoURL     string                `json:"video_url" gorm:"type:varchar(1000)"`
	ErrorMessage string                `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time             `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UploadedAt   *time.Time            `json:"uploaded_at" gorm:"type:timestamptz"`
}

func (Upload) TableName() string {
	return "uploads"
}
