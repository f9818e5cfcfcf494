// Package publish performs the worker side of a YouTube upload: load the
// attempt row, fetch the video, push it to YouTube, record the outcome and
// tell the user. Every path out of Run leaves the attempt row terminal.
package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/motionbotdev/motionbot/internal/logging"
	"github.com/motionbotdev/motionbot/internal/media"
	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
	"github.com/motionbotdev/motionbot/internal/youtube"
)

// Uploader is the YouTube surface the service needs.
type Uploader interface {
	Upload(ctx context.Context, creds youtube.Credentials, filePath, title, description string) (*youtube.UploadResult, error)
}

type Service struct {
	store      *store.Store
	uploader   Uploader
	tg         telegram.API
	scratchDir string
}

var pubLog = logging.Component("publish")

func NewService(st *store.Store, uploader Uploader, tg telegram.API, scratchDir string) *Service {
	return &Service{store: st, uploader: uploader, tg: tg, scratchDir: scratchDir}
}

// Run processes one upload attempt to completion. Redeliveries of an
// already-terminal attempt are acknowledged without re-uploading.
func (s *Service) Run(ctx context.Context, attemptID string) error {
	log := pubLog.WithField("attempt_id", attemptID)

	attempt, err := s.store.GetUploadAttempt(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		log.Warn("unknown upload attempt, dropping")
		return nil
	}
	if attempt.Status != store.UploadPending {
		log.WithField("status", attempt.Status).Info("attempt already terminal, skipping")
		return nil
	}

	result, err := s.upload(ctx, attempt)
	if err != nil {
		if markErr := s.store.MarkUploadFailed(ctx, attempt.ID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("mark upload failed")
		}
		s.send(attempt.ChatID, messages.UploadFailed(err.Error()))
		log.WithError(err).Error("upload failed")
		return nil
	}

	if err := s.store.MarkUploadSucceeded(ctx, attempt.ID, result.VideoID, result.ShortsURL); err != nil {
		log.WithError(err).Error("mark upload succeeded")
	}
	s.send(attempt.ChatID, messages.UploadSucceeded(result.ShortsURL))
	log.WithField("video_id", result.VideoID).Info("upload succeeded")
	return nil
}

func (s *Service) upload(ctx context.Context, attempt *store.UploadAttempt) (*youtube.UploadResult, error) {
	cred, err := s.store.GetActiveCredential(ctx, attempt.UserID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if cred == nil {
		return nil, fmt.Errorf("no active YouTube channel configured")
	}

	path, err := media.Download(ctx, nil, attempt.VideoURL, s.scratchDir)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			pubLog.WithError(err).Warn("remove downloaded video")
		}
	}()

	title := attempt.Description
	if title == "" {
		title = "AI Generated Video"
	}
	title = fmt.Sprintf("%s - %s", truncate(title, 80), time.Now().Format("2006-01-02"))
	description := attempt.Description
	if description == "" {
		description = "This video was generated using artificial intelligence"
	}

	return s.uploader.Upload(ctx, youtube.Credentials{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RefreshToken: cred.RefreshToken,
	}, path, title, description)
}

func (s *Service) send(chatID int64, text string) {
	if _, err := s.tg.SendMessage(chatID, text, messages.MainKeyboard()); err != nil {
		pubLog.WithError(err).Error("send upload notification")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
