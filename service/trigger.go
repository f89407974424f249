package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/repository"
)

// Evaluator drains queued trigger events and turns the ones that clear their
// definition's threshold into clips on the channel's active recording. Every
// drained event is consumed exactly once, matched or not.
type Evaluator struct {
	store    repository.Store
	pipeline *Pipeline
	metrics  *metrics.Metrics
}

func NewEvaluator(store repository.Store, pipeline *Pipeline, m *metrics.Metrics) *Evaluator {
	return &Evaluator{store: store, pipeline: pipeline, metrics: m}
}

func (e *Evaluator) Pass(ctx context.Context) error {
	events, err := e.store.UnprocessedTriggerEvents(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	definitions, err := e.store.EnabledTriggerDefinitions(ctx)
	if err != nil {
		return err
	}
	byKind := make(map[constant.TriggerKind]*entities.TriggerDefinition, len(definitions))
	for _, definition := range definitions {
		byKind[definition.Kind] = definition
	}

	var lastErr error
	for _, event := range events {
		e.evaluate(ctx, event, byKind)

		// Consumed exactly once: unmatched events are never retried.
		if err := e.store.MarkTriggerEventProcessed(ctx, event.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark trigger event processed")
			lastErr = err
			continue
		}
		if e.metrics != nil {
			e.metrics.EventsProcessed.Inc()
		}
	}
	return lastErr
}

func (e *Evaluator) evaluate(ctx context.Context, event *entities.TriggerEvent, byKind map[constant.TriggerKind]*entities.TriggerDefinition) {
	definition, ok := byKind[event.Kind]
	if !ok || event.Value < definition.Threshold {
		return
	}

	recording, err := e.store.LatestActiveRecording(ctx, event.ChannelId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zerolog.Ctx(ctx).Debug().
				Str("channel_id", event.ChannelId.String()).
				Str("kind", event.Kind.String()).
				Msg("trigger matched but no active recording")
		} else {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to look up active recording")
		}
		return
	}

	clip, err := e.pipeline.TriggerClip(ctx, definition, event, recording)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("trigger", definition.Name).Msg("failed to create clip from trigger event")
		return
	}
	zerolog.Ctx(ctx).Info().
		Str("clip_id", clip.ID.String()).
		Str("kind", event.Kind.String()).
		Float64("value", event.Value).
		Msg("auto-clip created from trigger event")
}
