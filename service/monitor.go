package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/pkg/schedule"
	"github.com/kaylum54/Cliperus-V2/repository"
)

// LivenessChecker answers whether a channel is currently broadcasting on its
// platform. Implementations map any network failure or non-2xx response to
// offline.
type LivenessChecker interface {
	Check(ctx context.Context, channel *entities.Channel) (bool, error)
}

// Monitor polls every auto-record channel and starts a recording session on
// an offline-to-live transition. It never stops a recording when a channel
// goes offline, so trailing and post-stream content is kept until an explicit
// stop.
type Monitor struct {
	store    repository.Store
	recorder *Recorder
	checkers map[constant.Platform]LivenessChecker
	interval time.Duration
	metrics  *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewMonitor(store repository.Store, recorder *Recorder, checkers map[constant.Platform]LivenessChecker, interval time.Duration, m *metrics.Metrics) *Monitor {
	return &Monitor{
		store:    store,
		recorder: recorder,
		checkers: checkers,
		interval: interval,
		metrics:  m,
	}
}

// Start launches the monitoring loop. Calling Start on a running monitor is
// an error.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("stream monitor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go schedule.Loop(loopCtx, schedule.Task{
		Name:       "stream_monitor",
		Interval:   m.interval,
		ErrBackoff: m.interval,
		Run:        m.Pass,
	})
	zerolog.Ctx(ctx).Info().Dur("interval", m.interval).Msg("stream monitor started")
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) CheckInterval() time.Duration {
	return m.interval
}

// Pass checks every auto-record channel once. A single channel's failure is
// treated as offline for this pass and never aborts the remaining channels.
func (m *Monitor) Pass(ctx context.Context) error {
	channels, err := m.store.ListAutoRecordChannels(ctx)
	if err != nil {
		return err
	}

	for _, channel := range channels {
		m.checkChannel(ctx, channel)
	}
	return nil
}

func (m *Monitor) checkChannel(ctx context.Context, channel *entities.Channel) {
	live := false
	checker, ok := m.checkers[channel.Platform]
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("platform", channel.Platform.String()).Str("channel", channel.Name).Msg("unknown platform")
	} else {
		var err error
		live, err = checker.Check(ctx, channel)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("channel", channel.Name).Msg("liveness check failed")
			live = false
		}
	}
	if m.metrics != nil {
		result := "offline"
		if live {
			result = "live"
		}
		m.metrics.LivenessChecks.WithLabelValues(channel.Platform.String(), result).Inc()
	}

	// Write only on a state change; unchanged channels stay untouched.
	if live == channel.IsLive {
		return
	}

	if err := m.store.UpdateChannelLive(ctx, channel.ID, live); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("channel", channel.Name).Msg("failed to update channel live status")
		return
	}
	zerolog.Ctx(ctx).Info().Str("channel", channel.Name).Bool("live", live).Msg("channel status changed")

	if live && !channel.IsRecording {
		zerolog.Ctx(ctx).Info().Str("channel", channel.Name).Msg("auto-starting recording")
		if _, err := m.recorder.StartSession(ctx, channel.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("channel", channel.Name).Msg("failed to auto-start recording")
		}
	}
	// A live-to-offline transition deliberately leaves the recording running.
}
