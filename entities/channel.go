package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/kaylum54/Cliperus-V2/constant"
)

type Channel struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string            `json:"name" gorm:"type:varchar(255);not null"`
	Platform    constant.Platform `json:"platform" gorm:"type:varchar(50);not null;default:'twitch'"`
	ChannelURL  string            `json:"channel_url" gorm:"type:varchar(500)"`
	ChannelID   string            `json:"channel_id" gorm:"type:varchar(255)"`
	IsLive      bool              `json:"is_live" gorm:"not null;default:false"`
	IsRecording bool              `json:"is_recording" gorm:"not null;default:false"`
	AutoRecord  bool              `json:"auto_record" gorm:"not null;default:true"`
	CreatedAt   time.Time         `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Channel) TableName() string {
	return "channels"
}
