package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/motionbotdev/motionbot/internal/logging"
)

// Converter transcodes unsupported videos to MP4 in a local scratch
// directory. Converted files are exposed under publicBase/media/<name> by
// the HTTP server; an hourly sweep is the backstop for anything an
// operation failed to clean up itself.
type Converter struct {
	dir        string
	publicBase string
	httpc      *http.Client
}

var convLog = logging.Component("media")

func NewConverter(dir, publicBase string) (*Converter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Converter{
		dir:        dir,
		publicBase: publicBase,
		httpc:      &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Dir is the scratch directory served at /media.
func (c *Converter) Dir() string { return c.dir }

// ConvertToMP4 downloads srcURL, transcodes it, and returns the public URL
// of the converted file. The downloaded input is removed on every path; the
// output is removed when conversion fails.
func (c *Converter) ConvertToMP4(ctx context.Context, srcURL string) (string, error) {
	in, err := Download(ctx, c.httpc, srcURL, c.dir)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	defer func() {
		if err := os.Remove(in); err != nil {
			convLog.WithError(err).Warn("remove conversion input")
		}
	}()

	outName := uuid.NewString() + ".mp4"
	out := filepath.Join(c.dir, outName)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", in,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-crf", "23",
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		out,
	)
	if raw, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(out)
		tail := raw
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return "", fmt.Errorf("ffmpeg: %w: %s", err, tail)
	}

	convLog.WithField("file", outName).Info("video converted")
	return c.publicBase + "/media/" + outName, nil
}

// Download fetches url into a uniquely named file under dir and returns the
// file path. The caller owns cleanup.
func Download(ctx context.Context, httpc *http.Client, url, dir string) (string, error) {
	if httpc == nil {
		httpc = &http.Client{Timeout: 5 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	path := filepath.Join(dir, "dl_"+uuid.NewString())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write download: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Sweep removes scratch entries older than maxAge.
func (c *Converter) Sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		convLog.WithError(err).Warn("read scratch dir")
		return
	}
	now := time.Now()
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				convLog.WithError(err).WithField("file", e.Name()).Warn("sweep scratch file")
			} else {
				convLog.WithField("file", e.Name()).Debug("swept scratch file")
			}
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is done.
func (c *Converter) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep(maxAge)
			}
		}
	}()
}
