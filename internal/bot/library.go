package bot

import (
	"context"
	"regexp"
	"strconv"

	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
)

// libraryButtonRe matches the reply buttons rendered by LibraryButtonText.
var libraryButtonRe = regexp.MustCompile(`^🎬\s*(\d+)\.`)

const libraryPageSize = 10

func (e *Engine) showLibrary(ctx context.Context, st *store.UserState, chatID int64) error {
	videos, err := e.store.ListLibraryVideos(ctx, st.UserID, 20)
	if err != nil {
		_, sendErr := e.tg.SendMessage(chatID, messages.GenericLibraryErr, messages.MainKeyboard())
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	if len(videos) == 0 {
		_, err := e.tg.SendMessage(chatID, messages.LibraryEmpty, messages.MainKeyboard())
		return err
	}

	shown := videos
	if len(shown) > libraryPageSize {
		shown = shown[:libraryPageSize]
	}
	prompts := make([]string, len(shown))
	for i, v := range shown {
		if v.Prompt != nil {
			prompts[i] = *v.Prompt
		}
	}
	_, err = e.tg.SendMessage(chatID, messages.LibraryList(len(videos)), messages.LibraryKeyboard(prompts))
	return err
}

// handleLibrarySelection resolves a pressed library button back to a video
// and offers the publish actions for it.
func (e *Engine) handleLibrarySelection(ctx context.Context, st *store.UserState, chatID int64, buttonText string) error {
	m := libraryButtonRe.FindStringSubmatch(buttonText)
	if m == nil {
		_, err := e.tg.SendMessage(chatID, messages.VideoSelectError, nil)
		return err
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		_, sendErr := e.tg.SendMessage(chatID, messages.VideoSelectError, nil)
		return sendErr
	}
	idx-- // buttons are numbered from 1

	videos, err := e.store.ListLibraryVideos(ctx, st.UserID, 20)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(videos) {
		_, err := e.tg.SendMessage(chatID, messages.VideoNotFound, nil)
		return err
	}
	video := videos[idx]

	cred, err := e.store.GetActiveCredential(ctx, st.UserID)
	if err != nil {
		return err
	}

	st.SelectedVideoTaskID = &video.TaskID
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	if err := e.tg.SendVideo(chatID, video.VideoURL); err != nil {
		botLog.WithError(err).WithField("task_id", video.TaskID).Warn("send library video")
	}

	prompt := ""
	if video.Prompt != nil {
		prompt = *video.Prompt
	}
	_, err = e.tg.SendMessage(chatID, messages.SelectedVideo(prompt, video.CreatedAt, cred != nil), messages.VideoActionsKeyboard())
	return err
}

// uploadFromLibrary publishes a library video straight away, using its
// prompt as the description.
func (e *Engine) uploadFromLibrary(ctx context.Context, st *store.UserState, chatID int64, taskID string) error {
	cred, err := e.store.GetActiveCredential(ctx, st.UserID)
	if err != nil {
		return err
	}
	if cred == nil {
		_, err := e.tg.SendMessage(chatID, messages.ChannelNotConfigured, messages.MainKeyboard())
		return err
	}

	video, err := e.store.GetLibraryVideo(ctx, taskID)
	if err != nil {
		return err
	}
	if video == nil {
		_, err := e.tg.SendMessage(chatID, messages.VideoNotFound, messages.MainKeyboard())
		return err
	}

	description := "This video was generated using artificial intelligence"
	if video.Prompt != nil && *video.Prompt != "" {
		description = *video.Prompt
	}
	return e.enqueueUpload(ctx, st, chatID, video, description)
}
