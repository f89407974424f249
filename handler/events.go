package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/dto"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/repository"
)

// TriggerEventHandler persists one signal message from the queue as an
// unprocessed trigger event for the evaluator to drain.
func TriggerEventHandler(ctx context.Context, msg amqp.Delivery, store repository.Store) error {
	var signal dto.TriggerEventMessage
	if err := json.Unmarshal(msg.Body, &signal); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal trigger event message")
		return err
	}

	timestamp := signal.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	event := &entities.TriggerEvent{
		ID:        uuid.New(),
		ChannelId: signal.ChannelId,
		Kind:      constant.TriggerKind(signal.Kind),
		Value:     signal.Value,
		Timestamp: timestamp,
	}
	if err := store.CreateTriggerEvent(ctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to persist trigger event")
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("channel_id", signal.ChannelId.String()).
		Str("kind", signal.Kind).
		Float64("value", signal.Value).
		Msg("trigger event ingested")
	return nil
}
