package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/kaylum54/Cliperus-V2/constant"
)

type Recording struct {
	ID            uuid.UUID                `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ChannelId     uuid.UUID                `json:"channel_id" gorm:"type:uuid;not null;index:idx_recordings_channel_id"`
	Filename      string                   `json:"filename" gorm:"type:varchar(500);not null"`
	Filepath      string                   `json:"filepath" gorm:"type:varchar(1000);not null"`
	SegmentNumber int                      `json:"segment_number" gorm:"not null;default:1"`
	Status        constant.RecordingStatus `json:"status" gorm:"type:varchar(50);not null;default:'recording';index:idx_recordings_status"`
	Platform      constant.Platform        `json:"platform" gorm:"type:varchar(50);not null;default:'twitch'"`
	Duration      float64                  `json:"duration" gorm:"not null;default:0"`
	FileSize      int64                    `json:"file_size" gorm:"type:bigint;not null;default:0"`
	ClipsDone     bool                     `json:"clips_done" gorm:"not null;default:false"`
	StartedAt     time.Time                `json:"started_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	EndedAt       *time.Time               `json:"ended_at" gorm:"type:timestamptz"`
}

func (Recording) TableName() string {
	return "recordings"
}
