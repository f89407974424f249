package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/kaylum54/Cliperus-V2/constant"
)

type Clip struct {
	ID           uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingId  uuid.UUID            `json:"recording_id" gorm:"type:uuid;not null;index:idx_clips_recording_id"`
	Title        string               `json:"title" gorm:"type:varchar(255);not null"`
	Filename     string               `json:"filename" gorm:"type:varchar(500);not null"`
	Filepath     string               `json:"filepath" gorm:"type:varchar(1000);not null"`
	Thumbnail    string               `json:"thumbnail" gorm:"type:varchar(1000)"`
	StartTime    float64              `json:"start_time" gorm:"not null;default:0"`
	EndTime      float64              `json:"end_time" gorm:"not null;default:0"`
	Duration     float64              `json:"duration" gorm:"not null;default:0"`
	FileSize     int64                `json:"file_size" gorm:"type:bigint;not null;default:0"`
	TriggerKind  constant.TriggerKind `json:"trigger_kind" gorm:"type:varchar(50);not null;default:'manual'"`
	TriggerValue string               `json:"trigger_value" gorm:"type:varchar(255)"`
	Status       constant.ClipStatus  `json:"status" gorm:"type:varchar(50);not null;default:'pending';index:idx_clips_status"`
	Score        float64              `json:"score" gorm:"not null;default:0"`
	Platform     constant.Platform    `json:"platform" gorm:"type:varchar(50);not null;default:'twitch'"`
	CreatedAt    time.Time            `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Clip) TableName() string {
	return "clips"
}
