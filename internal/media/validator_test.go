package media

import (
	"strings"
	"testing"
)

func TestCheckVideo(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		want     Verdict
	}{
		{"mp4 ok", "clip.mp4", "video/mp4", 5 << 20, VerdictOK},
		{"mov ok", "clip.MOV", "video/quicktime", 5 << 20, VerdictOK},
		{"mkv ok", "clip.mkv", "video/x-matroska", 5 << 20, VerdictOK},
		{"webm needs conversion", "clip.webm", "video/webm", 5 << 20, VerdictNeedsConversion},
		{"avi needs conversion", "clip.avi", "video/x-msvideo", 5 << 20, VerdictNeedsConversion},
		{"octet stream video name ok", "my_video_001", "application/octet-stream", 5 << 20, VerdictOK},
		{"octet stream unknown name converts", "blob", "application/octet-stream", 5 << 20, VerdictNeedsConversion},
		{"pdf rejected", "doc.pdf", "application/pdf", 1 << 20, VerdictRejected},
		{"exactly max size ok", "clip.mp4", "video/mp4", MaxVideoSize, VerdictOK},
		{"over max size rejected", "clip.mp4", "video/mp4", MaxVideoSize + 1, VerdictRejected},
		{"empty file rejected", "clip.mp4", "video/mp4", 0, VerdictRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckVideo(tt.fileName, tt.mimeType, tt.size)
			if got.Verdict != tt.want {
				t.Fatalf("CheckVideo(%q, %q, %d) = %v, want %v", tt.fileName, tt.mimeType, tt.size, got.Verdict, tt.want)
			}
			if got.Verdict == VerdictRejected && got.Reason == "" {
				t.Fatalf("rejection without a reason")
			}
		})
	}
}

func TestCheckVideo_OversizeReasonNamesBothSizes(t *testing.T) {
	got := CheckVideo("clip.mp4", "video/mp4", 150<<20)
	if got.Verdict != VerdictRejected {
		t.Fatalf("verdict = %v, want rejected", got.Verdict)
	}
	if !strings.Contains(got.Reason, "100 MB") || !strings.Contains(got.Reason, "150.00 MB") {
		t.Fatalf("reason should name limit and actual size: %q", got.Reason)
	}
}

func TestCheckImage(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		want     Verdict
	}{
		{"jpg ok", "face.jpg", "image/jpeg", 1 << 20, VerdictOK},
		{"png ok", "face.png", "image/png", 1 << 20, VerdictOK},
		{"webp ok", "face.webp", "image/webp", 1 << 20, VerdictOK},
		{"telegram photo no name ok", "", "image/jpeg", 1 << 20, VerdictOK},
		{"octet stream ok", "photo", "application/octet-stream", 1 << 20, VerdictOK},
		{"text file rejected", "notes.txt", "text/plain", 1 << 20, VerdictRejected},
		{"exactly max ok", "face.jpg", "image/jpeg", MaxImageSize, VerdictOK},
		{"over max rejected", "face.jpg", "image/jpeg", MaxImageSize + 1, VerdictRejected},
		{"empty rejected", "face.jpg", "image/jpeg", 0, VerdictRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckImage(tt.fileName, tt.mimeType, tt.size)
			if got.Verdict != tt.want {
				t.Fatalf("CheckImage(%q, %q, %d) = %v, want %v", tt.fileName, tt.mimeType, tt.size, got.Verdict, tt.want)
			}
		})
	}
}
