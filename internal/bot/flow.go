package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/media"
	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
)

// MaxPromptLen is measured in code points, matching what Telegram counts.
const MaxPromptLen = 2500

// clearStepMessage removes the previous wizard step prompt so the chat only
// shows the current step. Deletion is best effort; a failure never blocks
// the wizard.
func (e *Engine) clearStepMessage(st *store.UserState, chatID int64) {
	if st.CurrentMessageID == nil {
		return
	}
	if err := e.tg.DeleteMessage(chatID, *st.CurrentMessageID); err != nil {
		botLog.WithError(err).WithField("user_id", st.UserID).Debug("delete step message")
	}
	st.CurrentMessageID = nil
}

func (e *Engine) handleVideo(ctx context.Context, st *store.UserState, in *Incoming) error {
	ref := in.video()
	if ref == nil {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendVideoPlease, nil)
		return err
	}

	fileURL, size, err := e.tg.FileURL(ref.FileID)
	if err != nil {
		_, sendErr := e.tg.SendMessage(in.ChatID, messages.VideoError(err.Error()), nil)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	if ref.Size > 0 {
		size = ref.Size
	}

	check := media.CheckVideo(ref.FileName, ref.MimeType, size)
	switch check.Verdict {
	case media.VerdictRejected:
		_, err := e.tg.SendMessage(in.ChatID, messages.VideoError(check.Reason), nil)
		return err

	case media.VerdictNeedsConversion:
		converted, err := e.converter.ConvertToMP4(ctx, fileURL)
		if err != nil {
			botLog.WithError(err).WithField("user_id", st.UserID).Error("video conversion failed")
			_, sendErr := e.tg.SendMessage(in.ChatID, messages.VideoError("The video could not be converted. Please send an MP4, MOV or MKV file."), nil)
			return sendErr
		}
		fileURL = converted
	}

	e.clearStepMessage(st, in.ChatID)
	st.VideoFileID = &ref.FileID
	st.VideoURL = &fileURL
	st.State = store.StateWaitingImage
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	if _, err := e.tg.SendMessage(in.ChatID, messages.VideoReceived, nil); err != nil {
		return err
	}
	msg, err := e.tg.SendMessage(in.ChatID, messages.ImageRequest, nil)
	if err != nil {
		return err
	}
	st.CurrentMessageID = &msg.MessageID
	return e.store.SaveUserState(ctx, st)
}

func (e *Engine) handleImage(ctx context.Context, st *store.UserState, in *Incoming) error {
	ref := in.image()
	if ref == nil {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendImagePlease, nil)
		return err
	}

	fileURL, size, err := e.tg.FileURL(ref.FileID)
	if err != nil {
		_, sendErr := e.tg.SendMessage(in.ChatID, messages.ImageError(err.Error()), nil)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	if ref.Size > 0 {
		size = ref.Size
	}

	if check := media.CheckImage(ref.FileName, ref.MimeType, size); check.Verdict == media.VerdictRejected {
		_, err := e.tg.SendMessage(in.ChatID, messages.ImageError(check.Reason), nil)
		return err
	}

	e.clearStepMessage(st, in.ChatID)
	st.ImageFileID = &ref.FileID
	st.ImageURL = &fileURL
	st.State = store.StateWaitingPrompt
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	if _, err := e.tg.SendMessage(in.ChatID, messages.ImageReceived, nil); err != nil {
		return err
	}
	msg, err := e.tg.SendMessage(in.ChatID, messages.PromptRequest, nil)
	if err != nil {
		return err
	}
	st.CurrentMessageID = &msg.MessageID
	return e.store.SaveUserState(ctx, st)
}

func (e *Engine) handlePrompt(ctx context.Context, st *store.UserState, in *Incoming) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendPromptPlease, nil)
		return err
	}
	if utf8.RuneCountInString(text) > MaxPromptLen {
		_, err := e.tg.SendMessage(in.ChatID, messages.PromptTooLong, nil)
		return err
	}

	e.clearStepMessage(st, in.ChatID)
	st.Prompt = &text
	st.State = store.StateGenerating
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	if _, err := e.tg.SendMessage(in.ChatID, messages.PromptReceived, nil); err != nil {
		return err
	}
	return e.startGeneration(ctx, st, in.ChatID)
}

// startGeneration submits the collected inputs. A submission failure sends
// the user back to idle with the collected media intact; /start restarts
// cleanly either way.
func (e *Engine) startGeneration(ctx context.Context, st *store.UserState, chatID int64) error {
	if st.VideoURL == nil || st.ImageURL == nil || st.Prompt == nil {
		return e.failGeneration(ctx, st, chatID, "missing video, image or prompt")
	}

	callbackURL := ""
	if e.publicBaseURL != "" {
		tok, err := e.signer.Sign(st.UserID)
		if err != nil {
			return fmt.Errorf("sign callback token: %w", err)
		}
		callbackURL = e.publicBaseURL + "/api/callback?token=" + tok
	}

	taskID, err := e.submitter.Submit(ctx, kie.SubmitInput{
		Prompt:      *st.Prompt,
		ImageURL:    *st.ImageURL,
		VideoURL:    *st.VideoURL,
		CallbackURL: callbackURL,
	})
	if err != nil {
		botLog.WithError(err).WithField("user_id", st.UserID).Error("task submission failed")
		return e.failGeneration(ctx, st, chatID, err.Error())
	}

	if err := e.store.CreateTask(ctx, &store.Task{
		TaskID: taskID,
		UserID: st.UserID,
		ChatID: chatID,
		Status: store.TaskQueued,
	}); err != nil {
		return fmt.Errorf("record task: %w", err)
	}

	st.TaskID = &taskID
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	botLog.WithField("task_id", taskID).WithField("user_id", st.UserID).Info("task submitted")
	e.watcher.Watch(ctx, taskID, chatID)
	return nil
}

func (e *Engine) failGeneration(ctx context.Context, st *store.UserState, chatID int64, detail string) error {
	st.State = store.StateIdle
	st.TaskID = nil
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err := e.tg.SendMessage(chatID, messages.GenerationStartFailed(detail), messages.MainKeyboard())
	return err
}

// beginUpload starts the description step for publishing the selected
// library video, or the most recently generated one.
func (e *Engine) beginUpload(ctx context.Context, st *store.UserState, chatID int64) error {
	cred, err := e.store.GetActiveCredential(ctx, st.UserID)
	if err != nil {
		return err
	}
	if cred == nil {
		_, err := e.tg.SendMessage(chatID, messages.ChannelNotConfigured, messages.MainKeyboard())
		return err
	}

	if _, err := e.uploadableVideo(ctx, st); err != nil {
		_, sendErr := e.tg.SendMessage(chatID, messages.NoGeneratedVideo, messages.MainKeyboard())
		return sendErr
	}

	st.State = store.StateWaitingUploadDesc
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err = e.tg.SendMessage(chatID, messages.DescriptionRequest, nil)
	return err
}

// uploadableVideo resolves the library entry the upload refers to: the
// explicitly selected one, falling back to the last generated task.
func (e *Engine) uploadableVideo(ctx context.Context, st *store.UserState) (*store.LibraryVideo, error) {
	taskID := ""
	if st.SelectedVideoTaskID != nil {
		taskID = *st.SelectedVideoTaskID
	} else if st.TaskID != nil {
		taskID = *st.TaskID
	}
	if taskID == "" {
		return nil, fmt.Errorf("no video selected")
	}
	v, err := e.store.GetLibraryVideo(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("no library video for task %s", taskID)
	}
	return v, nil
}

func (e *Engine) handleUploadDescription(ctx context.Context, st *store.UserState, in *Incoming) error {
	description := strings.TrimSpace(in.Text)
	if description == "" {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendDescPlease, nil)
		return err
	}

	video, err := e.uploadableVideo(ctx, st)
	if err != nil {
		st.State = store.StateIdle
		if saveErr := e.store.SaveUserState(ctx, st); saveErr != nil {
			return saveErr
		}
		_, sendErr := e.tg.SendMessage(in.ChatID, messages.NoGeneratedVideo, messages.MainKeyboard())
		return sendErr
	}

	return e.enqueueUpload(ctx, st, in.ChatID, video, description)
}

// enqueueUpload records the attempt and hands it to the worker. The row
// carries everything the worker needs, so the bot is done after publishing.
func (e *Engine) enqueueUpload(ctx context.Context, st *store.UserState, chatID int64, video *store.LibraryVideo, description string) error {
	attempt := &store.UploadAttempt{
		UserID:      st.UserID,
		ChatID:      chatID,
		TaskID:      video.TaskID,
		VideoURL:    video.VideoURL,
		Description: description,
		Status:      store.UploadPending,
	}
	if err := e.store.CreateUploadAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("record upload attempt: %w", err)
	}
	if err := e.queue.PublishAttempt(ctx, attempt.ID); err != nil {
		if markErr := e.store.MarkUploadFailed(ctx, attempt.ID, "enqueue failed: "+err.Error()); markErr != nil {
			botLog.WithError(markErr).Error("mark upload failed")
		}
		_, sendErr := e.tg.SendMessage(chatID, messages.UploadFailed(err.Error()), messages.MainKeyboard())
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	st.State = store.StateIdle
	st.SelectedVideoTaskID = nil
	st.UploadTaskID = &video.TaskID
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	botLog.WithField("attempt_id", attempt.ID).WithField("task_id", video.TaskID).Info("upload queued")
	_, err := e.tg.SendMessage(chatID, messages.UploadQueued, messages.MainKeyboard())
	return err
}
