package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/pkg/ffmpeg"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/repository"
)

// Transport performs the actual per-part upload. Progress is reported
// through the callback so the job row tracks the transfer.
type Transport interface {
	Upload(ctx context.Context, filePath string, account *entities.DistributionAccount, progress func(percent float64)) (string, error)
}

// SimulatedTransport steps progress to completion without contacting the
// platform. It keeps the externally observable job states of the real
// transport so the rest of the queue does not care which one is wired.
type SimulatedTransport struct {
	StepDelay time.Duration
}

func (t SimulatedTransport) Upload(ctx context.Context, filePath string, account *entities.DistributionAccount, progress func(percent float64)) (string, error) {
	for percent := 0.0; percent <= 100; percent += 10 {
		select {
		case <-time.After(t.StepDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		progress(percent)
	}
	return fmt.Sprintf("https://tiktok.com/@%s/video/%d", account.Username, 1000000000+rand.Int63n(9000000000)), nil
}

// UploadQueue creates distribution jobs for readied clips and drives each
// job's pending/uploading/completed/failed state machine. A recovery pass
// re-drives jobs stranded in uploading, e.g. after a restart.
type UploadQueue struct {
	store     repository.Store
	media     ffmpeg.MediaTool
	transport Transport
	cfg       config.Upload
	metrics   *metrics.Metrics
	now       func() time.Time

	// inflight holds the jobs this process is currently driving, so the
	// recovery pass only picks up jobs stranded by a restart.
	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewUploadQueue(store repository.Store, media ffmpeg.MediaTool, transport Transport, cfg config.Upload, m *metrics.Metrics) *UploadQueue {
	return &UploadQueue{
		store:     store,
		media:     media,
		transport: transport,
		cfg:       cfg,
		metrics:   m,
		now:       time.Now,
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

func (q *UploadQueue) track(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[id]; ok {
		return false
	}
	q.inflight[id] = struct{}{}
	return true
}

func (q *UploadQueue) untrack(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, id)
}

// PartCount splits a clip duration into per-platform parts. Always at least
// one part.
func PartCount(duration, maxPartDuration float64) int {
	if maxPartDuration <= 0 || duration <= maxPartDuration {
		return 1
	}
	return int(math.Ceil(duration / maxPartDuration))
}

// QueueClip creates one distribution job per part for a readied clip and
// launches each part independently. With auto-post disabled or no active
// account configured, the clip is skipped quietly.
func (q *UploadQueue) QueueClip(ctx context.Context, clip *entities.Clip) error {
	if !q.cfg.AutoPost {
		return nil
	}
	if clip.Status != constant.ClipStatusReady {
		return nil
	}

	account, err := q.store.ActiveDistributionAccount(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zerolog.Ctx(ctx).Info().Str("clip_id", clip.ID.String()).Msg("auto-post skipped: no distribution account configured")
			return nil
		}
		return fmt.Errorf("find distribution account: %w", err)
	}

	duration := clip.Duration
	if probed, err := q.media.Duration(ctx, clip.Filepath); err == nil && probed > 0 {
		duration = probed
	}
	totalParts := PartCount(duration, q.cfg.MaxPartDuration)

	uploads := make([]*entities.Upload, 0, totalParts)
	for part := 1; part <= totalParts; part++ {
		upload := &entities.Upload{
			ID:          uuid.New(),
			ClipId:      clip.ID,
			AccountId:   &account.ID,
			Title:       clip.Title,
			Description: fmt.Sprintf("Auto-generated clip from %s", clip.Platform),
			Status:      constant.UploadStatusPending,
			PartNumber:  part,
			TotalParts:  totalParts,
			CreatedAt:   q.now().UTC(),
		}
		if err := q.store.CreateUpload(ctx, upload); err != nil {
			return fmt.Errorf("create upload part %d: %w", part, err)
		}
		uploads = append(uploads, upload)
	}

	zerolog.Ctx(ctx).Info().
		Str("clip_id", clip.ID.String()).
		Int("parts", totalParts).
		Msg("clip queued for distribution")

	dispatchCtx := zerolog.Ctx(ctx).WithContext(context.WithoutCancel(ctx))
	for _, upload := range uploads {
		go func(upload *entities.Upload) {
			if err := q.process(dispatchCtx, upload, clip.Filepath); err != nil {
				zerolog.Ctx(dispatchCtx).Error().Err(err).Str("upload_id", upload.ID.String()).Msg("upload failed")
			}
		}(upload)
	}
	return nil
}

// Pass re-drives any job left in uploading. A single job's failure never
// aborts the rest of the batch.
func (q *UploadQueue) Pass(ctx context.Context) error {
	stranded, err := q.store.UploadsInStatus(ctx, constant.UploadStatusUploading)
	if err != nil {
		return err
	}

	for _, upload := range stranded {
		q.mu.Lock()
		_, busy := q.inflight[upload.ID]
		q.mu.Unlock()
		if busy {
			continue
		}

		clip, err := q.store.FindClipById(ctx, upload.ClipId)
		if err != nil {
			q.fail(ctx, upload, "source clip no longer exists")
			continue
		}
		if _, err := os.Stat(clip.Filepath); err != nil {
			q.fail(ctx, upload, fmt.Sprintf("clip file missing: %s", clip.Filepath))
			continue
		}
		if err := q.process(ctx, upload, clip.Filepath); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("upload_id", upload.ID.String()).Msg("upload recovery failed")
		}
	}
	return nil
}

// process is the per-job state machine: pending/uploading with stepped
// progress, then completed with a remote URL or failed with a message. A
// missing credential is terminal, not retried. A job already in flight on
// this process is left to its running goroutine.
func (q *UploadQueue) process(ctx context.Context, upload *entities.Upload, filePath string) error {
	if !q.track(upload.ID) {
		return nil
	}
	defer q.untrack(upload.ID)

	var account *entities.DistributionAccount
	if upload.AccountId != nil {
		found, err := q.store.FindDistributionAccountById(ctx, *upload.AccountId)
		if err == nil {
			account = found
		}
	}
	if account == nil || account.AccessToken == "" {
		q.fail(ctx, upload, "distribution access token not configured; add an account with valid credentials")
		return nil
	}

	upload.Status = constant.UploadStatusUploading
	upload.Progress = 0
	if err := q.store.SaveUpload(ctx, upload); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	url, err := q.transport.Upload(ctx, filePath, account, func(percent float64) {
		upload.Progress = percent
		if err := q.store.SaveUpload(ctx, upload); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to save upload progress")
		}
	})
	if err != nil {
		q.fail(ctx, upload, err.Error())
		return err
	}

	upload.Status = constant.UploadStatusCompleted
	upload.Progress = 100
	upload.VideoURL = url
	uploadedAt := q.now().UTC()
	upload.UploadedAt = &uploadedAt
	if err := q.store.SaveUpload(ctx, upload); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if q.metrics != nil {
		q.metrics.Uploads.WithLabelValues(string(constant.UploadStatusCompleted)).Inc()
	}

	zerolog.Ctx(ctx).Info().
		Str("upload_id", upload.ID.String()).
		Int("part", upload.PartNumber).
		Str("url", url).
		Msg("upload completed")
	return nil
}

func (q *UploadQueue) fail(ctx context.Context, upload *entities.Upload, message string) {
	upload.Status = constant.UploadStatusFailed
	upload.ErrorMessage = message
	if err := q.store.SaveUpload(ctx, upload); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("upload_id", upload.ID.String()).Msg("failed to save failed upload")
	}
	if q.metrics != nil {
		q.metrics.Uploads.WithLabelValues(string(constant.UploadStatusFailed)).Inc()
	}
	zerolog.Ctx(ctx).Warn().Str("upload_id", upload.ID.String()).Str("reason", message).Msg("upload failed")
}
