package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is a point-in-time copy of the recording session. The zero
// value means no session is active.
type SessionSnapshot struct {
	Active         bool
	SegmentNumber  int
	SegmentStarted time.Time
	ChannelId      uuid.UUID
	RecordingId    uuid.UUID
}

// Session is the authoritative in-memory record of the active recording
// session. The Recorder is the single writer; every other component observes
// through Current, which returns a value copy.
type Session struct {
	mu   sync.RWMutex
	snap SessionSnapshot
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Start(channelId, recordingId uuid.UUID, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = SessionSnapshot{
		Active:         true,
		SegmentNumber:  1,
		SegmentStarted: now,
		ChannelId:      channelId,
		RecordingId:    recordingId,
	}
}

// Advance points the session at the next segment's recording and resets the
// segment clock. It is a no-op when no session is active.
func (s *Session) Advance(recordingId uuid.UUID, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snap.Active {
		return
	}
	s.snap.SegmentNumber++
	s.snap.SegmentStarted = now
	s.snap.RecordingId = recordingId
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = SessionSnapshot{}
}

func (s *Session) Current() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
