package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
)

// fakeStore is an in-memory repository.Store. Reads return copies so callers
// mutate nothing shared, mirroring how the real store hydrates fresh rows.
type fakeStore struct {
	mu          sync.Mutex
	channels    map[uuid.UUID]*entities.Channel
	recordings  map[uuid.UUID]*entities.Recording
	clips       map[uuid.UUID]*entities.Clip
	definitions []*entities.TriggerDefinition
	events      map[uuid.UUID]*entities.TriggerEvent
	uploads     map[uuid.UUID]*entities.Upload
	accounts    map[uuid.UUID]*entities.DistributionAccount

	liveUpdates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels:   make(map[uuid.UUID]*entities.Channel),
		recordings: make(map[uuid.UUID]*entities.Recording),
		clips:      make(map[uuid.UUID]*entities.Clip),
		events:     make(map[uuid.UUID]*entities.TriggerEvent),
		uploads:    make(map[uuid.UUID]*entities.Upload),
		accounts:   make(map[uuid.UUID]*entities.DistributionAccount),
	}
}

func (s *fakeStore) GetDB() *gorm.DB { return nil }

func (s *fakeStore) FindChannelById(ctx context.Context, id uuid.UUID) (*entities.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *channel
	return &copied, nil
}

func (s *fakeStore) ListAutoRecordChannels(ctx context.Context) ([]*entities.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Channel
	for _, channel := range s.channels {
		if channel.AutoRecord {
			copied := *channel
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateChannelLive(ctx context.Context, id uuid.UUID, live bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channels[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	channel.IsLive = live
	s.liveUpdates++
	return nil
}

func (s *fakeStore) UpdateChannelRecording(ctx context.Context, id uuid.UUID, recording bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channels[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	channel.IsRecording = recording
	return nil
}

func (s *fakeStore) CreateRecording(ctx context.Context, recording *entities.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *recording
	s.recordings[recording.ID] = &copied
	return nil
}

func (s *fakeStore) FindRecordingById(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recording, ok := s.recordings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *recording
	return &copied, nil
}

func (s *fakeStore) SaveRecording(ctx context.Context, recording *entities.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *recording
	s.recordings[recording.ID] = &copied
	return nil
}

func (s *fakeStore) LatestActiveRecording(ctx context.Context, channelId uuid.UUID) (*entities.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *entities.Recording
	for _, recording := range s.recordings {
		if recording.ChannelId != channelId || recording.Status != constant.RecordingStatusRecording {
			continue
		}
		if latest == nil || recording.StartedAt.After(latest.StartedAt) {
			latest = recording
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *fakeStore) CreateClip(ctx context.Context, clip *entities.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *clip
	s.clips[clip.ID] = &copied
	return nil
}

func (s *fakeStore) FindClipById(ctx context.Context, id uuid.UUID) (*entities.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip, ok := s.clips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *clip
	return &copied, nil
}

func (s *fakeStore) SaveClip(ctx context.Context, clip *entities.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *clip
	s.clips[clip.ID] = &copied
	return nil
}

func (s *fakeStore) EnabledTriggerDefinitions(ctx context.Context) ([]*entities.TriggerDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.TriggerDefinition
	for _, definition := range s.definitions {
		if definition.Enabled {
			copied := *definition
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) UnprocessedTriggerEvents(ctx context.Context) ([]*entities.TriggerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.TriggerEvent
	for _, event := range s.events {
		if !event.Processed {
			copied := *event
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateTriggerEvent(ctx context.Context, event *entities.TriggerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *fakeStore) MarkTriggerEventProcessed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	event.Processed = true
	return nil
}

func (s *fakeStore) CreateUpload(ctx context.Context, upload *entities.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *upload
	s.uploads[upload.ID] = &copied
	return nil
}

func (s *fakeStore) SaveUpload(ctx context.Context, upload *entities.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *upload
	s.uploads[upload.ID] = &copied
	return nil
}

func (s *fakeStore) UploadsInStatus(ctx context.Context, status constant.UploadStatus) ([]*entities.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Upload
	for _, upload := range s.uploads {
		if upload.Status == status {
			copied := *upload
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveDistributionAccount(ctx context.Context) (*entities.DistributionAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.IsActive {
			copied := *account
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) FindDistributionAccountById(ctx context.Context, id uuid.UUID) (*entities.DistributionAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *fakeStore) clipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

func (s *fakeStore) recordingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recordings)
}

// fakeMedia is a MediaTool that records invocations and writes placeholder
// output files so file-size stats succeed.
type fakeMedia struct {
	mu          sync.Mutex
	duration    float64
	durationErr error
	cutErr      error
	thumbErr    error
	cuts        int
}

func (m *fakeMedia) Duration(ctx context.Context, path string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.durationErr != nil {
		return 0, m.durationErr
	}
	return m.duration, nil
}

func (m *fakeMedia) Cut(ctx context.Context, srcPath, dstPath string, startOffset, duration float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cutErr != nil {
		return m.cutErr
	}
	m.cuts++
	return os.WriteFile(dstPath, []byte("clip"), 0o644)
}

func (m *fakeMedia) Thumbnail(ctx context.Context, srcPath, dstPath string, offsetSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.thumbErr != nil {
		return m.thumbErr
	}
	return os.WriteFile(dstPath, []byte("thumb"), 0o644)
}

func (m *fakeMedia) Available(ctx context.Context) (bool, string) {
	return true, "fake"
}

type fakeController struct {
	mu        sync.Mutex
	connected bool
	starts    int
	stops     int
	rotates   int
}

func (c *fakeController) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return nil
}

func (c *fakeController) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeController) Rotate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotates++
	return nil
}

type fakeChecker struct {
	live bool
	err  error
}

func (c *fakeChecker) Check(ctx context.Context, channel *entities.Channel) (bool, error) {
	return c.live, c.err
}

// testRig wires a Recorder with its Pipeline and UploadQueue over in-memory
// fakes. Auto-post and auto-delete are off unless a test flips them.
type testRig struct {
	store      *fakeStore
	media      *fakeMedia
	controller *fakeController
	session    *Session
	uploads    *UploadQueue
	pipeline   *Pipeline
	recorder   *Recorder
}

func newTestRig(t testing.TB) *testRig {
	t.Helper()
	store := newFakeStore()
	media := &fakeMedia{duration: 3600}
	controller := &fakeController{connected: true}
	uploads := NewUploadQueue(store, media, SimulatedTransport{}, config.Upload{MaxPartDuration: 60}, nil)
	pipeline := NewPipeline(store, media, uploads, config.Clips{Dir: t.TempDir(), PreBuffer: 10, PostBuffer: 5, ThumbnailOffset: 1}, false, config.Archive{}, nil, nil)
	session := NewSession()
	recorder := NewRecorder(store, session, controller, pipeline, config.Recording{Dir: t.TempDir(), SegmentDuration: time.Hour}, nil)
	return &testRig{
		store:      store,
		media:      media,
		controller: controller,
		session:    session,
		uploads:    uploads,
		pipeline:   pipeline,
		recorder:   recorder,
	}
}

func (r *testRig) addChannel(channel *entities.Channel) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *channel
	r.store.channels[channel.ID] = &copied
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}
