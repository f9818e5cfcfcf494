package store

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ConversationState is the wizard step a user is currently at.
type ConversationState string

const (
	StateIdle             ConversationState = "idle"
	StateWaitingVideo     ConversationState = "waiting_video"
	StateWaitingImage     ConversationState = "waiting_image"
	StateWaitingPrompt    ConversationState = "waiting_prompt"
	StateGenerating       ConversationState = "generating"
	StateSetupSecret      ConversationState = "youtube_setup_client_secret"
	StateSetupClientID    ConversationState = "youtube_setup_client_id"
	StateSetupToken       ConversationState = "youtube_setup_refresh_token"
	StateWaitingUploadDesc ConversationState = "waiting_youtube_description"
)

// UserState is the durable per-user conversation record. One row per
// Telegram user; created lazily, never deleted.
type UserState struct {
	UserID string            `gorm:"primaryKey;size:32"`
	State  ConversationState `gorm:"type:varchar(40);not null"`

	VideoFileID *string `gorm:"size:128"`
	VideoURL    *string `gorm:"size:1024"`
	ImageFileID *string `gorm:"size:128"`
	ImageURL    *string `gorm:"size:1024"`
	Prompt      *string `gorm:"type:text"`

	// In-flight or most recently finished generation task. Kept after a
	// successful generation so a later upload can find the video.
	TaskID *string `gorm:"size:64;index"`

	// Last bot-sent step prompt, deleted when the step completes.
	CurrentMessageID *int

	// Transient credential-setup fields, cleared once verification succeeds.
	PendingClientSecret *string `gorm:"size:512"`
	PendingClientID     *string `gorm:"size:512"`

	// Library entry the user picked for republishing.
	SelectedVideoTaskID *string `gorm:"size:64"`
	UploadTaskID        *string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserState) TableName() string { return "user_states" }

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Task is one submitted generation job. The primary key is assigned by the
// generation service. Rows are never deleted; they are the provenance record
// for the library and later uploads.
type Task struct {
	TaskID string     `gorm:"primaryKey;size:64"`
	UserID string     `gorm:"index;not null;size:32"`
	ChatID int64      `gorm:"not null"`
	Status TaskStatus `gorm:"type:varchar(16);index;not null"`

	// Filled on success
	ResultJSON *string `gorm:"type:text"`

	// Filled on failure
	FailCode *string `gorm:"size:64"`
	FailMsg  *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string { return "tasks" }

// LibraryVideo is one successfully generated video, at most one per task.
type LibraryVideo struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`
	TaskID   string  `gorm:"uniqueIndex;not null;size:64"`
	UserID   string  `gorm:"index;not null;size:32"`
	VideoURL string  `gorm:"size:1024;not null"`
	Prompt   *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LibraryVideo) TableName() string { return "library_videos" }

// ChannelCredential holds a user's YouTube OAuth credentials. Replacing a
// channel inserts a fresh active row; old rows stay with is_active=false.
// ClientSecret and RefreshToken are sealed at rest.
type ChannelCredential struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"index;not null;size:32"`
	ClientID     string `gorm:"size:256;not null"`
	ClientSecret string `gorm:"size:1024;not null"`
	RefreshToken string `gorm:"size:1024;not null"`
	ChannelID    string `gorm:"size:128"`
	ChannelTitle string `gorm:"size:256"`
	IsActive     bool   `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChannelCredential) TableName() string { return "channel_credentials" }

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

// UploadAttempt is one YouTube publish attempt. Retries create new rows so
// the full attempt history is retained. It carries everything the worker
// process needs; nothing lives only in the bot's memory.
type UploadAttempt struct {
	ID          string       `gorm:"primaryKey;size:26"` // ULID
	UserID      string       `gorm:"index;not null;size:32"`
	ChatID      int64        `gorm:"not null"`
	TaskID      string       `gorm:"index;not null;size:64"`
	VideoURL    string       `gorm:"size:1024;not null"`
	Description string       `gorm:"type:text"`
	Status      UploadStatus `gorm:"type:varchar(16);index;not null"`

	YouTubeVideoID  *string `gorm:"column:youtube_video_id;size:64"`
	YouTubeVideoURL *string `gorm:"column:youtube_video_url;size:256"`
	ErrorMessage    *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UploadAttempt) TableName() string { return "upload_attempts" }

// NewAttemptID returns a fresh ULID for an upload attempt.
func NewAttemptID() string {
	return ulid.Make().String()
}
