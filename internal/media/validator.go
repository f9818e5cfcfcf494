package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	MaxVideoSize = 100 << 20 // 100 MB
	MaxImageSize = 10 << 20  // 10 MB
)

var (
	supportedVideoExts = map[string]bool{".mp4": true, ".mov": true, ".mkv": true}
	supportedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
)

type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictNeedsConversion
	VerdictRejected
)

// CheckResult classifies an inbound media reference. Reason is user-facing
// and only set for rejections.
type CheckResult struct {
	Verdict Verdict
	Reason  string
}

func rejected(format string, args ...any) CheckResult {
	return CheckResult{Verdict: VerdictRejected, Reason: fmt.Sprintf(format, args...)}
}

func mb(n int64) float64 { return float64(n) / (1 << 20) }

// CheckVideo classifies a video by name, MIME type and size. Containers the
// generation API accepts (mp4/mov/mkv) pass as-is; anything else that still
// looks like a video needs conversion.
func CheckVideo(fileName, mimeType string, size int64) CheckResult {
	if size > MaxVideoSize {
		return rejected("Video size is too large. The maximum allowed size is %.0f MB.\nCurrent size: %.2f MB", mb(MaxVideoSize), mb(size))
	}
	if size == 0 {
		return rejected("The file is empty. Please send a valid video.")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if supportedVideoExts[ext] {
		return CheckResult{Verdict: VerdictOK}
	}

	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return CheckResult{Verdict: VerdictNeedsConversion}
	case mimeType == "" || mimeType == "application/octet-stream":
		// Telegram frequently reports octet-stream for videos; accept when
		// the name still hints at a video, convert otherwise.
		lower := strings.ToLower(fileName)
		if strings.Contains(lower, "video") {
			return CheckResult{Verdict: VerdictOK}
		}
		return CheckResult{Verdict: VerdictNeedsConversion}
	default:
		return rejected("Unsupported video type. Supported formats: MP4, MOV, MKV.\nCurrent type: %s", mimeType)
	}
}

// CheckImage classifies an image by name, MIME type and size.
func CheckImage(fileName, mimeType string, size int64) CheckResult {
	if size > MaxImageSize {
		return rejected("Image size is too large. The maximum allowed size is %.0f MB.\nCurrent size: %.2f MB", mb(MaxImageSize), mb(size))
	}
	if size == 0 {
		return rejected("The file is empty. Please send a valid image.")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if supportedImageExts[ext] {
		return CheckResult{Verdict: VerdictOK}
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CheckResult{Verdict: VerdictOK}
	case mimeType == "" || mimeType == "application/octet-stream":
		return CheckResult{Verdict: VerdictOK}
	default:
		return rejected("Unsupported image type. Supported formats: JPEG, PNG, WEBP.\nCurrent type: %s", mimeType)
	}
}
