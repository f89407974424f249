package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/kaylum54/Cliperus-V2/constant"
)

type TriggerDefinition struct {
	ID           uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name         string               `json:"name" gorm:"type:varchar(100);not null"`
	Kind         constant.TriggerKind `json:"kind" gorm:"type:varchar(50);not null;index:idx_trigger_definitions_kind"`
	Threshold    float64              `json:"threshold" gorm:"not null;default:0"`
	ClipDuration float64              `json:"clip_duration" gorm:"not null;default:30"`
	PreBuffer    float64              `json:"pre_buffer" gorm:"not null;default:10"`
	PostBuffer   float64              `json:"post_buffer" gorm:"not null;default:5"`
	Enabled      bool                 `json:"enabled" gorm:"not null;default:true"`
	CreatedAt    time.Time            `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (TriggerDefinition) TableName() string {
	return "trigger_definitions"
}

type TriggerEvent struct {
	ID        uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ChannelId uuid.UUID            `json:"channel_id" gorm:"type:uuid;not null;index:idx_trigger_events_channel_id"`
	Kind      constant.TriggerKind `json:"kind" gorm:"type:varchar(50);not null"`
	Value     float64              `json:"value" gorm:"not null;default:0"`
	Timestamp time.Time            `json:"timestamp" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	Processed bool                 `json:"processed" gorm:"not null;default:false;index:idx_trigger_events_processed"`
}

func (TriggerEvent) TableName() string {
	return "trigger_events"
}
