package service

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/pkg/ffmpeg"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/repository"
)

// WindowSelector picks the start offset of a clip window inside a sealed
// segment. The default picks uniformly at random; real highlight detection
// would replace this without touching the pipeline.
type WindowSelector interface {
	Window(sourceDuration, clipDuration float64) float64
}

type randomWindow struct{}

func (randomWindow) Window(sourceDuration, clipDuration float64) float64 {
	maxStart := sourceDuration - clipDuration
	if maxStart <= 0 {
		return 0
	}
	return rand.Float64() * maxStart
}

// Pipeline turns a source recording plus a time window into a clip file,
// thumbnail, and relevance score. Both the segment path and the trigger-event
// path converge on extract.
type Pipeline struct {
	store      repository.Store
	media      ffmpeg.MediaTool
	uploads    *UploadQueue
	selector   WindowSelector
	clips      config.Clips
	autoDelete bool
	archive    config.Archive
	storage    *minio.Client
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewPipeline(store repository.Store, media ffmpeg.MediaTool, uploads *UploadQueue, clips config.Clips, autoDelete bool, archive config.Archive, storage *minio.Client, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:      store,
		media:      media,
		uploads:    uploads,
		selector:   randomWindow{},
		clips:      clips,
		autoDelete: autoDelete,
		archive:    archive,
		storage:    storage,
		metrics:    m,
		now:        time.Now,
	}
}

// ProcessSegment generates at most one clip per enabled trigger definition
// from a sealed segment, then applies the storage-reclaim policy to the
// source recording. Errors on one definition never abort the rest.
func (p *Pipeline) ProcessSegment(ctx context.Context, recordingId uuid.UUID) {
	recording, err := p.store.FindRecordingById(ctx, recordingId)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("recording_id", recordingId.String()).Msg("recording not found, skipping clip generation")
		return
	}
	if _, err := os.Stat(recording.Filepath); err != nil {
		zerolog.Ctx(ctx).Warn().Str("file", recording.Filepath).Msg("recording file missing, skipping clip generation")
		return
	}

	definitions, err := p.store.EnabledTriggerDefinitions(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to load trigger definitions")
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", recordingId.String()).
		Int("definitions", len(definitions)).
		Msg("generating clips for sealed segment")

	var ready []*entities.Clip
	for _, definition := range definitions {
		clip, err := p.segmentClip(ctx, recording, definition)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("trigger", definition.Name).Msg("failed to create clip for trigger")
			continue
		}
		if clip.Status == constant.ClipStatusReady {
			ready = append(ready, clip)
		}
	}

	for _, clip := range ready {
		if err := p.uploads.QueueClip(ctx, clip); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("failed to queue clip for distribution")
		}
	}

	p.reclaim(ctx, recording, len(ready))
}

func (p *Pipeline) segmentClip(ctx context.Context, recording *entities.Recording, definition *entities.TriggerDefinition) (*entities.Clip, error) {
	preBuffer := definition.PreBuffer
	if preBuffer <= 0 {
		preBuffer = p.clips.PreBuffer
	}
	postBuffer := definition.PostBuffer
	if postBuffer <= 0 {
		postBuffer = p.clips.PostBuffer
	}
	totalDuration := preBuffer + definition.ClipDuration + postBuffer
	startTime := p.selector.Window(recording.Duration, totalDuration)

	clip := p.newClip(recording, definition.Name, definition.Kind, strconv.FormatFloat(definition.Threshold, 'f', -1, 64), startTime, totalDuration)
	if err := p.store.CreateClip(ctx, clip); err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}

	if err := p.extract(ctx, clip, recording.Filepath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("clip extraction failed")
	}
	return clip, nil
}

// TriggerClip is the event path: the window is anchored at the event
// timestamp, reaching back over the pre-buffer and clip duration, clamped to
// the start of the source.
func (p *Pipeline) TriggerClip(ctx context.Context, definition *entities.TriggerDefinition, event *entities.TriggerEvent, recording *entities.Recording) (*entities.Clip, error) {
	preBuffer := definition.PreBuffer
	if preBuffer <= 0 {
		preBuffer = p.clips.PreBuffer
	}
	postBuffer := definition.PostBuffer
	if postBuffer <= 0 {
		postBuffer = p.clips.PostBuffer
	}
	totalDuration := preBuffer + definition.ClipDuration + postBuffer

	startTime := event.Timestamp.Sub(recording.StartedAt).Seconds() - preBuffer - definition.ClipDuration
	if startTime < 0 {
		startTime = 0
	}

	clip := p.newClip(recording, definition.Name, event.Kind, strconv.FormatFloat(event.Value, 'f', -1, 64), startTime, totalDuration)
	if err := p.store.CreateClip(ctx, clip); err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}

	if err := p.extract(ctx, clip, recording.Filepath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("clip extraction failed")
		return clip, nil
	}
	if clip.Status == constant.ClipStatusReady {
		if err := p.uploads.QueueClip(ctx, clip); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("failed to queue clip for distribution")
		}
	}
	return clip, nil
}

func (p *Pipeline) newClip(recording *entities.Recording, triggerName string, kind constant.TriggerKind, triggerValue string, startTime, duration float64) *entities.Clip {
	now := p.now()
	title := fmt.Sprintf("Auto_%s_%s", triggerName, now.Format("150405"))
	filename := fmt.Sprintf("%s_%d.mp4", title, now.Unix())
	return &entities.Clip{
		ID:           uuid.New(),
		RecordingId:  recording.ID,
		Title:        title,
		Filename:     filename,
		Filepath:     filepath.Join(p.clips.Dir, filename),
		StartTime:    startTime,
		EndTime:      startTime + duration,
		Duration:     duration,
		TriggerKind:  kind,
		TriggerValue: triggerValue,
		Status:       constant.ClipStatusPending,
		Score:        Score(kind, triggerValue),
		Platform:     recording.Platform,
		CreatedAt:    now.UTC(),
	}
}

// extract cuts the clip window out of the source file, renders the thumbnail,
// and finalizes the clip to ready or failed.
func (p *Pipeline) extract(ctx context.Context, clip *entities.Clip, srcPath string) error {
	clip.Status = constant.ClipStatusProcessing
	if err := p.store.SaveClip(ctx, clip); err != nil {
		return fmt.Errorf("save clip: %w", err)
	}

	if err := p.media.Cut(ctx, srcPath, clip.Filepath, clip.StartTime, clip.Duration); err != nil {
		clip.Status = constant.ClipStatusFailed
		if saveErr := p.store.SaveClip(ctx, clip); saveErr != nil {
			zerolog.Ctx(ctx).Error().Err(saveErr).Msg("failed to save failed clip")
		}
		if p.metrics != nil {
			p.metrics.ClipsCreated.WithLabelValues(string(constant.ClipStatusFailed)).Inc()
		}
		return fmt.Errorf("cut clip: %w", err)
	}

	thumbnailPath := fmt.Sprintf("%s_thumb.jpg", clip.Filepath[:len(clip.Filepath)-len(filepath.Ext(clip.Filepath))])
	if err := p.media.Thumbnail(ctx, clip.Filepath, thumbnailPath, p.clips.ThumbnailOffset); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("thumbnail generation failed")
	} else {
		clip.Thumbnail = thumbnailPath
	}

	clip.Status = constant.ClipStatusReady
	if info, err := os.Stat(clip.Filepath); err == nil {
		clip.FileSize = info.Size()
	}
	if err := p.store.SaveClip(ctx, clip); err != nil {
		return fmt.Errorf("save clip: %w", err)
	}
	if p.metrics != nil {
		p.metrics.ClipsCreated.WithLabelValues(string(constant.ClipStatusReady)).Inc()
	}

	p.archiveClip(ctx, clip)
	zerolog.Ctx(ctx).Info().
		Str("clip_id", clip.ID.String()).
		Str("trigger", clip.TriggerKind.String()).
		Float64("score", clip.Score).
		Msg("clip ready")
	return nil
}

// archiveClip mirrors a readied clip and its thumbnail to object storage.
// Archive failures are logged only; the local file remains the source of
// truth for distribution.
func (p *Pipeline) archiveClip(ctx context.Context, clip *entities.Clip) {
	if !p.archive.Enabled || p.storage == nil {
		return
	}
	objectName := filepath.Join("clips", clip.Filename)
	if _, err := p.storage.FPutObject(ctx, p.archive.Bucket, objectName, clip.Filepath, minio.PutObjectOptions{ContentType: "video/mp4"}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("failed to archive clip")
		return
	}
	if clip.Thumbnail != "" {
		thumbObject := filepath.Join("clips", filepath.Base(clip.Thumbnail))
		if _, err := p.storage.FPutObject(ctx, p.archive.Bucket, thumbObject, clip.Thumbnail, minio.PutObjectOptions{ContentType: "image/jpeg"}); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("clip_id", clip.ID.String()).Msg("failed to archive thumbnail")
		}
	}
}

// reclaim applies the storage policy to a processed segment: with at least
// one successful clip and auto-delete on, the long-form file is removed and
// the recording archived; a failed delete falls back to completed with the
// file retained.
func (p *Pipeline) reclaim(ctx context.Context, recording *entities.Recording, readyCount int) {
	recording.ClipsDone = readyCount > 0

	switch {
	case readyCount > 0 && p.autoDelete:
		if err := os.Remove(recording.Filepath); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("file", recording.Filepath).Msg("failed to delete long-form video")
			recording.Status = constant.RecordingStatusCompleted
		} else {
			zerolog.Ctx(ctx).Info().Str("file", recording.Filepath).Msg("deleted long-form video")
			recording.Status = constant.RecordingStatusArchived
			recording.FileSize = 0
		}
	case readyCount > 0:
		recording.Status = constant.RecordingStatusCompleted
		zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("auto-delete disabled, keeping long-form video")
	default:
		recording.Status = constant.RecordingStatusCompleted
		zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("no clips created, keeping long-form video")
	}

	if err := p.store.SaveRecording(ctx, recording); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", recording.ID.String()).Msg("failed to save recording after reclaim")
	}
}

// Score rates a clip by its trigger kind and observed value. Unparseable
// values fall back to the manual tier before the jitter is applied.
func Score(kind constant.TriggerKind, triggerValue string) float64 {
	base := 5.0
	value, parseErr := strconv.ParseFloat(triggerValue, 64)

	switch kind {
	case constant.TriggerKindDonation:
		switch {
		case parseErr != nil:
			base = 5.0
		case value >= 100:
			base = 9.5
		case value >= 50:
			base = 8.5
		case value >= 10:
			base = 7.0
		default:
			base = 6.0
		}
	case constant.TriggerKindChatActivity:
		switch {
		case parseErr != nil:
			base = 5.0
		case value >= 200:
			base = 9.0
		case value >= 100:
			base = 8.0
		default:
			base = 7.0
		}
	case constant.TriggerKindViewerCount:
		base = 8.0
	case constant.TriggerKindSentiment:
		base = 7.5
	case constant.TriggerKindAudioExcitement:
		base = 8.5
	case constant.TriggerKindManual:
		base = 5.0
	}

	score := base + rand.Float64()*0.5
	if score > 10.0 {
		score = 10.0
	}
	return score
}
