package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/pkg/capture"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/repository"
)

var (
	ErrSessionActive   = errors.New("a recording session is already active")
	ErrNoActiveSession = errors.New("no recording session is active")
)

// Recorder owns the recording session: it starts and stops sessions and runs
// the segmentation pass that rotates the active recording into bounded
// segments. It is the only writer of Session and of Recording lifecycle
// fields in statuses recording/processing.
type Recorder struct {
	store    repository.Store
	session  *Session
	capture  capture.Controller
	pipeline *Pipeline
	cfg      config.Recording
	metrics  *metrics.Metrics
	now      func() time.Time

	// mu serializes the compound start/stop/rotate operations end to end;
	// the guard-then-commit span crosses store round trips, and the monitor
	// and the HTTP surface both call in here. The Session lock only covers
	// reader snapshots.
	mu sync.Mutex
}

func NewRecorder(store repository.Store, session *Session, controller capture.Controller, pipeline *Pipeline, cfg config.Recording, m *metrics.Metrics) *Recorder {
	return &Recorder{
		store:    store,
		session:  session,
		capture:  controller,
		pipeline: pipeline,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
	}
}

// StartSession creates the first Recording segment for the channel and marks
// the session active. A disconnected capture tool is tolerated: the session
// bookkeeping runs either way, matching the external recorder's lifecycle
// only approximately.
func (r *Recorder) StartSession(ctx context.Context, channelId uuid.UUID) (*entities.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Current().Active {
		return nil, ErrSessionActive
	}

	channel, err := r.store.FindChannelById(ctx, channelId)
	if err != nil {
		return nil, fmt.Errorf("find channel: %w", err)
	}

	now := r.now()
	recording := r.newSegment(channel.ID, channel.Platform, 1, now)
	if err := r.store.CreateRecording(ctx, recording); err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}

	if r.capture.IsConnected() {
		if err := r.capture.Start(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("channel", channel.Name).Msg("failed to start capture tool")
		}
	} else {
		zerolog.Ctx(ctx).Info().Str("channel", channel.Name).Msg("capture tool not connected, recording entry only")
	}

	if err := r.store.UpdateChannelRecording(ctx, channel.ID, true); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to flag channel as recording")
	}

	r.session.Start(channel.ID, recording.ID, now)
	zerolog.Ctx(ctx).Info().
		Str("channel", channel.Name).
		Str("recording_id", recording.ID.String()).
		Msg("recording session started")

	return recording, nil
}

// StopSession finalizes the current segment and clears the session. The
// sealed segment keeps status completed; no clip generation is dispatched for
// an explicitly stopped recording.
func (r *Recorder) StopSession(ctx context.Context) (*entities.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.session.Current()
	if !snap.Active {
		return nil, ErrNoActiveSession
	}

	if r.capture.IsConnected() {
		if err := r.capture.Stop(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to stop capture tool")
		}
	}

	now := r.now()
	recording, err := r.store.FindRecordingById(ctx, snap.RecordingId)
	if err != nil {
		return nil, fmt.Errorf("find recording: %w", err)
	}

	recording.Status = constant.RecordingStatusCompleted
	endedAt := now.UTC()
	recording.EndedAt = &endedAt
	recording.Duration = now.Sub(snap.SegmentStarted).Seconds()
	if info, statErr := os.Stat(recording.Filepath); statErr == nil {
		recording.FileSize = info.Size()
	}
	if err := r.store.SaveRecording(ctx, recording); err != nil {
		return nil, fmt.Errorf("save recording: %w", err)
	}

	if err := r.store.UpdateChannelRecording(ctx, snap.ChannelId, false); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to clear channel recording flag")
	}

	r.session.End()
	zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("recording session stopped")

	return recording, nil
}

func (r *Recorder) Status() SessionSnapshot {
	return r.session.Current()
}

func (r *Recorder) CaptureOnline() bool {
	return r.capture.IsConnected()
}

// Pass rotates the active recording once the segment clock exceeds the
// configured duration: the current segment is sealed, the next one is
// allocated, and clip extraction for the sealed segment is dispatched without
// waiting for it.
func (r *Recorder) Pass(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.session.Current()
	if !snap.Active {
		return nil
	}

	now := r.now()
	elapsed := now.Sub(snap.SegmentStarted)
	if elapsed < r.cfg.SegmentDuration {
		return nil
	}

	recording, err := r.store.FindRecordingById(ctx, snap.RecordingId)
	if err != nil {
		return fmt.Errorf("find active recording: %w", err)
	}

	if r.capture.IsConnected() {
		if err := r.capture.Rotate(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("capture rotation failed, sealing segment anyway")
		} else {
			zerolog.Ctx(ctx).Info().Int("segment", snap.SegmentNumber).Msg("capture output rotated")
		}
	}

	recording.Status = constant.RecordingStatusProcessing
	endedAt := now.UTC()
	recording.EndedAt = &endedAt
	recording.Duration = elapsed.Seconds()
	if info, statErr := os.Stat(recording.Filepath); statErr == nil {
		recording.FileSize = info.Size()
	}
	if err := r.store.SaveRecording(ctx, recording); err != nil {
		return fmt.Errorf("seal segment: %w", err)
	}

	next := r.newSegment(snap.ChannelId, recording.Platform, snap.SegmentNumber+1, now)
	if err := r.store.CreateRecording(ctx, next); err != nil {
		return fmt.Errorf("create next segment: %w", err)
	}

	r.session.Advance(next.ID, now)
	if r.metrics != nil {
		r.metrics.SegmentsRotated.Inc()
	}
	zerolog.Ctx(ctx).Info().
		Str("sealed", recording.ID.String()).
		Int("segment", next.SegmentNumber).
		Str("file", next.Filename).
		Msg("segment rotated")

	// Extraction must not stall the scheduling loop; hand it a detached
	// context that survives this pass.
	sealedId := recording.ID
	dispatchCtx := zerolog.Ctx(ctx).WithContext(context.WithoutCancel(ctx))
	go r.pipeline.ProcessSegment(dispatchCtx, sealedId)

	return nil
}

func (r *Recorder) newSegment(channelId uuid.UUID, platform constant.Platform, segment int, now time.Time) *entities.Recording {
	filename := fmt.Sprintf("recording_%s_%s_seg%d.mp4", channelId, now.Format("20060102_150405"), segment)
	return &entities.Recording{
		ID:            uuid.New(),
		ChannelId:     channelId,
		Filename:      filename,
		Filepath:      filepath.Join(r.cfg.Dir, filename),
		SegmentNumber: segment,
		Status:        constant.RecordingStatusRecording,
		Platform:      platform,
		StartedAt:     now.UTC(),
	}
}
