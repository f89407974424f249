package dto

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEventMessage is the queue payload published by external signal
// producers (chat/metrics ingestion) and by the ingestion endpoint.
type TriggerEventMessage struct {
	ChannelId uuid.UUID `json:"channelId"`
	Kind      string    `json:"kind"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type StartSessionRequest struct {
	ChannelId uuid.UUID `json:"channel_id" binding:"required"`
}

type SessionStatusResponse struct {
	Active         bool       `json:"active"`
	SegmentNumber  int        `json:"segment_number"`
	SegmentStarted *time.Time `json:"segment_started,omitempty"`
	ChannelId      *uuid.UUID `json:"channel_id,omitempty"`
	RecordingId    *uuid.UUID `json:"recording_id,omitempty"`
	CaptureOnline  bool       `json:"capture_online"`
}

type CreateTriggerEventRequest struct {
	ChannelId uuid.UUID `json:"channel_id" binding:"required"`
	Kind      string    `json:"kind" binding:"required"`
	Value     float64   `json:"value"`
}

type MonitorStatusResponse struct {
	Running       bool    `json:"running"`
	CheckInterval float64 `json:"check_interval"`
}
