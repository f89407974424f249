package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
)

func TestScoreTiers(t *testing.T) {
	tests := []struct {
		name  string
		kind  constant.TriggerKind
		value string
		base  float64
	}{
		{"donation large", constant.TriggerKindDonation, "150", 9.5},
		{"donation medium", constant.TriggerKindDonation, "50", 8.5},
		{"donation small", constant.TriggerKindDonation, "10", 7.0},
		{"donation tiny", constant.TriggerKindDonation, "5", 6.0},
		{"donation unparseable", constant.TriggerKindDonation, "a lot", 5.0},
		{"chat spike", constant.TriggerKindChatActivity, "250", 9.0},
		{"chat busy", constant.TriggerKindChatActivity, "120", 8.0},
		{"chat baseline", constant.TriggerKindChatActivity, "40", 7.0},
		{"viewer count", constant.TriggerKindViewerCount, "9000", 8.0},
		{"sentiment", constant.TriggerKindSentiment, "0.9", 7.5},
		{"audio excitement", constant.TriggerKindAudioExcitement, "0.8", 8.5},
		{"manual", constant.TriggerKindManual, "", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				score := Score(tt.kind, tt.value)
				if score < tt.base || score > tt.base+0.5 {
					t.Fatalf("Score(%s, %q) = %f, want within [%f, %f]", tt.kind, tt.value, score, tt.base, tt.base+0.5)
				}
				if score > 10 {
					t.Fatalf("score %f exceeds cap", score)
				}
			}
		})
	}
}

func TestRandomWindowBounds(t *testing.T) {
	selector := randomWindow{}
	for i := 0; i < 100; i++ {
		start := selector.Window(100, 45)
		if start < 0 || start > 55 {
			t.Fatalf("window start = %f, want within [0, 55]", start)
		}
	}
	if start := selector.Window(30, 45); start != 0 {
		t.Fatalf("window start for short source = %f, want 0", start)
	}
	if start := selector.Window(45, 45); start != 0 {
		t.Fatalf("window start for exact-length source = %f, want 0", start)
	}
}

func sealedRecording(t *testing.T, rig *testRig, duration float64) *entities.Recording {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.mp4")
	if err := os.WriteFile(path, []byte("segment-data"), 0o644); err != nil {
		t.Fatalf("write segment file: %v", err)
	}
	endedAt := time.Now().UTC()
	recording := &entities.Recording{
		ID:            uuid.New(),
		ChannelId:     uuid.New(),
		Filename:      "segment.mp4",
		Filepath:      path,
		SegmentNumber: 1,
		Status:        constant.RecordingStatusProcessing,
		Platform:      constant.PlatformTwitch,
		Duration:      duration,
		StartedAt:     endedAt.Add(-time.Duration(duration) * time.Second),
		EndedAt:       &endedAt,
	}
	if err := rig.store.CreateRecording(context.Background(), recording); err != nil {
		t.Fatalf("create recording: %v", err)
	}
	return recording
}

func addDefinition(rig *testRig, kind constant.TriggerKind, threshold float64) *entities.TriggerDefinition {
	definition := &entities.TriggerDefinition{
		ID:           uuid.New(),
		Name:         string(kind),
		Kind:         kind,
		Threshold:    threshold,
		ClipDuration: 30,
		PreBuffer:    10,
		PostBuffer:   5,
		Enabled:      true,
	}
	rig.store.mu.Lock()
	rig.store.definitions = append(rig.store.definitions, definition)
	rig.store.mu.Unlock()
	return definition
}

func TestPipelineProcessSegment(t *testing.T) {
	rig := newTestRig(t)
	addDefinition(rig, constant.TriggerKindChatActivity, 100)
	addDefinition(rig, constant.TriggerKindAudioExcitement, 0.7)
	recording := sealedRecording(t, rig, 3600)
	ctx := context.Background()

	rig.pipeline.ProcessSegment(ctx, recording.ID)

	if got := rig.store.clipCount(); got != 2 {
		t.Fatalf("clip count = %d, want one per enabled definition", got)
	}
	rig.store.mu.Lock()
	for _, clip := range rig.store.clips {
		if clip.Status != constant.ClipStatusReady {
			t.Errorf("clip %s status = %s, want ready", clip.ID, clip.Status)
		}
		if clip.Duration != 45 {
			t.Errorf("clip duration = %f, want 45", clip.Duration)
		}
		if clip.EndTime != clip.StartTime+clip.Duration {
			t.Errorf("clip end %f != start %f + duration %f", clip.EndTime, clip.StartTime, clip.Duration)
		}
		if clip.EndTime > 3600 {
			t.Errorf("clip window [%f, %f] exceeds source duration", clip.StartTime, clip.EndTime)
		}
		if clip.FileSize == 0 {
			t.Errorf("clip %s has no file size", clip.ID)
		}
		if clip.Thumbnail == "" {
			t.Errorf("clip %s has no thumbnail", clip.ID)
		}
	}
	rig.store.mu.Unlock()

	stored, _ := rig.store.FindRecordingById(ctx, recording.ID)
	if stored.Status != constant.RecordingStatusCompleted {
		t.Fatalf("recording status = %s, want completed with auto-delete off", stored.Status)
	}
	if !stored.ClipsDone {
		t.Fatal("ClipsDone should be set")
	}
	if _, err := os.Stat(recording.Filepath); err != nil {
		t.Fatal("source file must be kept with auto-delete off")
	}
}

func TestPipelineProcessSegmentAutoDelete(t *testing.T) {
	rig := newTestRig(t)
	rig.pipeline.autoDelete = true
	addDefinition(rig, constant.TriggerKindChatActivity, 100)
	recording := sealedRecording(t, rig, 3600)
	ctx := context.Background()

	rig.pipeline.ProcessSegment(ctx, recording.ID)

	stored, _ := rig.store.FindRecordingById(ctx, recording.ID)
	if stored.Status != constant.RecordingStatusArchived {
		t.Fatalf("recording status = %s, want archived", stored.Status)
	}
	if stored.FileSize != 0 {
		t.Fatalf("file size = %d, want 0 after delete", stored.FileSize)
	}
	if _, err := os.Stat(recording.Filepath); !os.IsNotExist(err) {
		t.Fatal("long-form file should be deleted")
	}
}

func TestPipelineProcessSegmentMissingFile(t *testing.T) {
	rig := newTestRig(t)
	addDefinition(rig, constant.TriggerKindChatActivity, 100)
	recording := sealedRecording(t, rig, 3600)
	if err := os.Remove(recording.Filepath); err != nil {
		t.Fatalf("remove segment file: %v", err)
	}
	ctx := context.Background()

	rig.pipeline.ProcessSegment(ctx, recording.ID)

	if got := rig.store.clipCount(); got != 0 {
		t.Fatalf("clip count = %d, want 0 when the source file is gone", got)
	}
	stored, _ := rig.store.FindRecordingById(ctx, recording.ID)
	if stored.Status != constant.RecordingStatusProcessing {
		t.Fatalf("recording status = %s, must stay untouched", stored.Status)
	}
}

func TestPipelineProcessSegmentCutFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.media.cutErr = os.ErrPermission
	rig.pipeline.autoDelete = true
	addDefinition(rig, constant.TriggerKindChatActivity, 100)
	recording := sealedRecording(t, rig, 3600)
	ctx := context.Background()

	rig.pipeline.ProcessSegment(ctx, recording.ID)

	rig.store.mu.Lock()
	for _, clip := range rig.store.clips {
		if clip.Status != constant.ClipStatusFailed {
			t.Errorf("clip status = %s, want failed", clip.Status)
		}
	}
	rig.store.mu.Unlock()

	stored, _ := rig.store.FindRecordingById(ctx, recording.ID)
	if stored.Status != constant.RecordingStatusCompleted {
		t.Fatalf("recording status = %s, want completed when no clip succeeded", stored.Status)
	}
	if stored.ClipsDone {
		t.Fatal("ClipsDone must stay false with zero ready clips")
	}
	if _, err := os.Stat(recording.Filepath); err != nil {
		t.Fatal("source file must be kept when no clip succeeded")
	}
}

func TestPipelineReclaimDeleteFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.pipeline.autoDelete = true
	recording := sealedRecording(t, rig, 3600)
	if err := os.Remove(recording.Filepath); err != nil {
		t.Fatalf("remove segment file: %v", err)
	}
	ctx := context.Background()

	rig.pipeline.reclaim(ctx, recording, 1)

	stored, _ := rig.store.FindRecordingById(ctx, recording.ID)
	if stored.Status != constant.RecordingStatusCompleted {
		t.Fatalf("recording status = %s, want completed fallback when delete fails", stored.Status)
	}
	if !stored.ClipsDone {
		t.Fatal("ClipsDone should still be set")
	}
}

func TestPipelineTriggerClipWindow(t *testing.T) {
	rig := newTestRig(t)
	definition := addDefinition(rig, constant.TriggerKindDonation, 10)
	recording := sealedRecording(t, rig, 3600)
	recording.Status = constant.RecordingStatusRecording
	if err := rig.store.SaveRecording(context.Background(), recording); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	ctx := context.Background()

	event := &entities.TriggerEvent{
		ID:        uuid.New(),
		ChannelId: recording.ChannelId,
		Kind:      constant.TriggerKindDonation,
		Value:     150,
		Timestamp: recording.StartedAt.Add(500 * time.Second),
	}
	clip, err := rig.pipeline.TriggerClip(ctx, definition, event, recording)
	if err != nil {
		t.Fatalf("TriggerClip: %v", err)
	}
	if clip.StartTime != 460 {
		t.Fatalf("start time = %f, want 460 (event offset minus pre-buffer and clip duration)", clip.StartTime)
	}
	if clip.Duration != 45 {
		t.Fatalf("duration = %f, want 45", clip.Duration)
	}
	if clip.EndTime != 505 {
		t.Fatalf("end time = %f, want 505", clip.EndTime)
	}
	if clip.Status != constant.ClipStatusReady {
		t.Fatalf("status = %s, want ready", clip.Status)
	}
	if clip.TriggerValue != "150" {
		t.Fatalf("trigger value = %q, want the event value", clip.TriggerValue)
	}
}

func TestPipelineTriggerClipClampsToStart(t *testing.T) {
	rig := newTestRig(t)
	definition := addDefinition(rig, constant.TriggerKindDonation, 10)
	recording := sealedRecording(t, rig, 3600)
	ctx := context.Background()

	event := &entities.TriggerEvent{
		ID:        uuid.New(),
		ChannelId: recording.ChannelId,
		Kind:      constant.TriggerKindDonation,
		Value:     150,
		Timestamp: recording.StartedAt.Add(10 * time.Second),
	}
	clip, err := rig.pipeline.TriggerClip(ctx, definition, event, recording)
	if err != nil {
		t.Fatalf("TriggerClip: %v", err)
	}
	if clip.StartTime != 0 {
		t.Fatalf("start time = %f, want 0 for an event near the segment start", clip.StartTime)
	}
}
