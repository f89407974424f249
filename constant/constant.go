package constant

type RecordingStatus string

const (
	RecordingStatusRecording  RecordingStatus = "recording"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusCompleted  RecordingStatus = "completed"
	RecordingStatusArchived   RecordingStatus = "archived"
)

type ClipStatus string

const (
	ClipStatusPending    ClipStatus = "pending"
	ClipStatusProcessing ClipStatus = "processing"
	ClipStatusReady      ClipStatus = "ready"
	ClipStatusFailed     ClipStatus = "failed"
)

type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

type TriggerKind string

const (
	TriggerKindDonation        TriggerKind = "donation"
	TriggerKindChatActivity    TriggerKind = "chat_activity"
	TriggerKindViewerCount     TriggerKind = "viewer_count"
	TriggerKindSentiment       TriggerKind = "sentiment"
	TriggerKindAudioExcitement TriggerKind = "audio_excitement"
	TriggerKindManual          TriggerKind = "manual"
)

func (k TriggerKind) String() string {
	return string(k)
}

type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
	PlatformKick    Platform = "kick"
)

func (p Platform) String() string {
	return string(p)
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
