package bot

// MediaRef identifies one Telegram file attachment.
type MediaRef struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
}

// Incoming is a normalized inbound message. The dispatcher builds it from
// the raw update; the engine never touches transport types.
type Incoming struct {
	UpdateID  int
	UserID    string
	ChatID    int64
	MessageID int
	Text      string

	Video    *MediaRef
	Photo    *MediaRef
	Document *MediaRef
}

// Callback is a normalized inline-button press.
type Callback struct {
	ID        string
	UserID    string
	ChatID    int64
	MessageID int
	Data      string
}

// video returns the attachment to treat as a video, if any.
func (in *Incoming) video() *MediaRef {
	if in.Video != nil {
		return in.Video
	}
	return in.Document
}

// image returns the attachment to treat as an image, if any.
func (in *Incoming) image() *MediaRef {
	if in.Photo != nil {
		return in.Photo
	}
	return in.Document
}
