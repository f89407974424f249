package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
)

// Store is the record-store contract the workers run against. Lifecycle
// fields of each entity are written only by the component that owns that
// transition; see the service package.
type Store interface {
	GetDB() *gorm.DB

	FindChannelById(ctx context.Context, id uuid.UUID) (*entities.Channel, error)
	ListAutoRecordChannels(ctx context.Context) ([]*entities.Channel, error)
	UpdateChannelLive(ctx context.Context, id uuid.UUID, live bool) error
	UpdateChannelRecording(ctx context.Context, id uuid.UUID, recording bool) error

	CreateRecording(ctx context.Context, recording *entities.Recording) error
	FindRecordingById(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	SaveRecording(ctx context.Context, recording *entities.Recording) error
	LatestActiveRecording(ctx context.Context, channelId uuid.UUID) (*entities.Recording, error)

	CreateClip(ctx context.Context, clip *entities.Clip) error
	FindClipById(ctx context.Context, id uuid.UUID) (*entities.Clip, error)
	SaveClip(ctx context.Context, clip *entities.Clip) error

	EnabledTriggerDefinitions(ctx context.Context) ([]*entities.TriggerDefinition, error)
	UnprocessedTriggerEvents(ctx context.Context) ([]*entities.TriggerEvent, error)
	CreateTriggerEvent(ctx context.Context, event *entities.TriggerEvent) error
	MarkTriggerEventProcessed(ctx context.Context, id uuid.UUID) error

	CreateUpload(ctx context.Context, upload *entities.Upload) error
	SaveUpload(ctx context.Context, upload *entities.Upload) error
	UploadsInStatus(ctx context.Context, status constant.UploadStatus) ([]*entities.Upload, error)

	ActiveDistributionAccount(ctx context.Context) (*entities.DistributionAccount, error)
	FindDistributionAccountById(ctx context.Context, id uuid.UUID) (*entities.DistributionAccount, error)
}

type repo struct {
	db *gorm.DB
}

func NewStore(db *sql.DB) Store {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) FindChannelById(ctx context.Context, id uuid.UUID) (*entities.Channel, error) {
	channel := &entities.Channel{}
	err := r.GetDB().WithContext(ctx).First(channel, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (r *repo) ListAutoRecordChannels(ctx context.Context) ([]*entities.Channel, error) {
	var channels []*entities.Channel
	err := r.GetDB().WithContext(ctx).Where("auto_record = ?", true).Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *repo) UpdateChannelLive(ctx context.Context, id uuid.UUID, live bool) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Channel{}).Where("id = ?", id).Update("is_live", live).Error
}

func (r *repo) UpdateChannelRecording(ctx context.Context, id uuid.UUID, recording bool) error {
	return r.GetDB().WithContext(ctx).Model(&entities.Channel{}).Where("id = ?", id).Update("is_recording", recording).Error
}

func (r *repo) CreateRecording(ctx context.Context, recording *entities.Recording) error {
	return r.GetDB().WithContext(ctx).Create(recording).Error
}

func (r *repo) FindRecordingById(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.GetDB().WithContext(ctx).First(recording, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return recording, nil
}

func (r *repo) SaveRecording(ctx context.Context, recording *entities.Recording) error {
	return r.GetDB().WithContext(ctx).Save(recording).Error
}

// LatestActiveRecording returns the most recently started recording still in
// status "recording" for the channel, or gorm.ErrRecordNotFound.
func (r *repo) LatestActiveRecording(ctx context.Context, channelId uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.GetDB().WithContext(ctx).
		Where("channel_id = ? AND status = ?", channelId, constant.RecordingStatusRecording).
		Order("started_at DESC").
		First(recording).Error
	if err != nil {
		return nil, err
	}
	return recording, nil
}

func (r *repo) CreateClip(ctx context.Context, clip *entities.Clip) error {
	return r.GetDB().WithContext(ctx).Create(clip).Error
}

func (r *repo) FindClipById(ctx context.Context, id uuid.UUID) (*entities.Clip, error) {
	clip := &entities.Clip{}
	err := r.GetDB().WithContext(ctx).First(clip, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return clip, nil
}

func (r *repo) SaveClip(ctx context.Context, clip *entities.Clip) error {
	return r.GetDB().WithContext(ctx).Save(clip).Error
}

func (r *repo) EnabledTriggerDefinitions(ctx context.Context) ([]*entities.TriggerDefinition, error) {
	var definitions []*entities.TriggerDefinition
	err := r.GetDB().WithContext(ctx).Where("enabled = ?", true).Find(&definitions).Error
	if err != nil {
		return nil, err
	}
	return definitions, nil
}

func (r *repo) UnprocessedTriggerEvents(ctx context.Context) ([]*entities.TriggerEvent, error) {
	var events []*entities.TriggerEvent
	err := r.GetDB().WithContext(ctx).Where("processed = ?", false).Order("timestamp ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) CreateTriggerEvent(ctx context.Context, event *entities.TriggerEvent) error {
	return r.GetDB().WithContext(ctx).Create(event).Error
}

func (r *repo) MarkTriggerEventProcessed(ctx context.Context, id uuid.UUID) error {
	return r.GetDB().WithContext(ctx).Model(&entities.TriggerEvent{}).Where("id = ?", id).Update("processed", true).Error
}

func (r *repo) CreateUpload(ctx context.Context, upload *entities.Upload) error {
	return r.GetDB().WithContext(ctx).Create(upload).Error
}

func (r *repo) SaveUpload(ctx context.Context, upload *entities.Upload) error {
	return r.GetDB().WithContext(ctx).Save(upload).Error
}

func (r *repo) UploadsInStatus(ctx context.Context, status constant.UploadStatus) ([]*entities.Upload, error) {
	var uploads []*entities.Upload
	err := r.GetDB().WithContext(ctx).Where("status = ?", status).Find(&uploads).Error
	if err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *repo) ActiveDistributionAccount(ctx context.Context) (*entities.DistributionAccount, error) {
	account := &entities.DistributionAccount{}
	err := r.GetDB().WithContext(ctx).Where("is_active = ?", true).First(account).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *repo) FindDistributionAccountById(ctx context.Context, id uuid.UUID) (*entities.DistributionAccount, error) {
	account := &entities.DistributionAccount{}
	err := r.GetDB().WithContext(ctx).First(account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}
