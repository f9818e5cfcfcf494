// Package bot contains the conversation engine: a per-user state machine
// that walks users through the generation wizard, YouTube channel setup and
// library republishing.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/logging"
	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
	"github.com/motionbotdev/motionbot/internal/youtube"
)

// Submitter creates generation tasks.
type Submitter interface {
	Submit(ctx context.Context, in kie.SubmitInput) (string, error)
}

// Verifier checks YouTube credentials during channel setup.
type Verifier interface {
	Verify(ctx context.Context, creds youtube.Credentials) (*youtube.Channel, error)
}

// Watcher starts reconciliation for a submitted task.
type Watcher interface {
	Watch(ctx context.Context, taskID string, chatID int64)
}

// Enqueuer hands upload attempts to the worker queue.
type Enqueuer interface {
	PublishAttempt(ctx context.Context, attemptID string) error
}

// VideoConverter transcodes an unsupported video and returns a public URL.
type VideoConverter interface {
	ConvertToMP4(ctx context.Context, srcURL string) (string, error)
}

// CallbackSigner signs the token embedded in generation callback URLs.
type CallbackSigner interface {
	Sign(subject string) (string, error)
}

type Engine struct {
	store     *store.Store
	tg        telegram.API
	submitter Submitter
	verifier  Verifier
	watcher   Watcher
	queue     Enqueuer
	converter VideoConverter
	signer    CallbackSigner

	// Base URL the generation service calls back on; empty disables the
	// webhook and leaves reconciliation to polling alone.
	publicBaseURL string
}

var botLog = logging.Component("bot")

func NewEngine(
	st *store.Store,
	tg telegram.API,
	submitter Submitter,
	verifier Verifier,
	watcher Watcher,
	queue Enqueuer,
	converter VideoConverter,
	signer CallbackSigner,
	publicBaseURL string,
) *Engine {
	return &Engine{
		store:         st,
		tg:            tg,
		submitter:     submitter,
		verifier:      verifier,
		watcher:       watcher,
		queue:         queue,
		converter:     converter,
		signer:        signer,
		publicBaseURL: publicBaseURL,
	}
}

// HandleMessage routes one inbound message through the state machine.
func (e *Engine) HandleMessage(ctx context.Context, in *Incoming) error {
	if in.UserID == "" {
		return fmt.Errorf("message without user id (chat %d)", in.ChatID)
	}

	st, err := e.store.GetOrCreateUserState(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("load user state: %w", err)
	}

	// Commands cut across every state.
	if strings.HasPrefix(in.Text, "/") {
		switch strings.TrimSpace(in.Text) {
		case "/start":
			return e.handleStart(ctx, st, in.ChatID)
		case "/cancel":
			return e.handleCancel(ctx, st, in.ChatID)
		}
	}

	switch st.State {
	case store.StateIdle:
		return e.handleIdle(ctx, st, in)
	case store.StateWaitingVideo:
		return e.handleVideo(ctx, st, in)
	case store.StateWaitingImage:
		return e.handleImage(ctx, st, in)
	case store.StateWaitingPrompt:
		return e.handlePrompt(ctx, st, in)
	case store.StateGenerating:
		_, err := e.tg.SendMessage(in.ChatID, messages.Generating, nil)
		return err
	case store.StateSetupSecret:
		return e.handleSetupSecret(ctx, st, in)
	case store.StateSetupClientID:
		return e.handleSetupClientID(ctx, st, in)
	case store.StateSetupToken:
		return e.handleSetupToken(ctx, st, in)
	case store.StateWaitingUploadDesc:
		return e.handleUploadDescription(ctx, st, in)
	default:
		_, err := e.tg.SendMessage(in.ChatID, messages.UseButtons, messages.MainKeyboard())
		return err
	}
}

func (e *Engine) handleStart(ctx context.Context, st *store.UserState, chatID int64) error {
	if _, err := e.tg.SendMessage(chatID, messages.Welcome, messages.MainKeyboard()); err != nil {
		return err
	}
	return e.beginWizard(ctx, st, chatID)
}

// handleCancel aborts whatever is in progress and returns the user to idle.
// Works from any state.
func (e *Engine) handleCancel(ctx context.Context, st *store.UserState, chatID int64) error {
	e.resetWizard(st)
	st.State = store.StateIdle
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err := e.tg.SendMessage(chatID, messages.Canceled, messages.MainKeyboard())
	return err
}

func (e *Engine) resetWizard(st *store.UserState) {
	st.VideoFileID = nil
	st.VideoURL = nil
	st.ImageFileID = nil
	st.ImageURL = nil
	st.Prompt = nil
	st.TaskID = nil
	st.CurrentMessageID = nil
	st.PendingClientSecret = nil
	st.PendingClientID = nil
	st.SelectedVideoTaskID = nil
}

// beginWizard moves the user to the first wizard step and sends its prompt.
func (e *Engine) beginWizard(ctx context.Context, st *store.UserState, chatID int64) error {
	st.State = store.StateWaitingVideo
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	msg, err := e.tg.SendMessage(chatID, messages.VideoRequest, nil)
	if err != nil {
		return err
	}
	st.CurrentMessageID = &msg.MessageID
	return e.store.SaveUserState(ctx, st)
}

func (e *Engine) handleIdle(ctx context.Context, st *store.UserState, in *Incoming) error {
	switch in.Text {
	case messages.BtnStartGeneration:
		return e.beginWizard(ctx, st, in.ChatID)

	case messages.BtnVideoLibrary:
		return e.showLibrary(ctx, st, in.ChatID)

	case messages.BtnSetupYouTube:
		cred, err := e.store.GetActiveCredential(ctx, st.UserID)
		if err != nil {
			return err
		}
		if cred != nil {
			_, err := e.tg.SendMessage(in.ChatID, messages.ChannelSettings(cred.ChannelTitle), messages.ChannelManageKeyboard())
			return err
		}
		return e.beginChannelSetup(ctx, st, in.ChatID)

	case messages.BtnChangeChannel:
		return e.beginChannelSetup(ctx, st, in.ChatID)

	case messages.BtnDeleteChannel:
		if err := e.store.DeactivateCredential(ctx, st.UserID); err != nil {
			_, sendErr := e.tg.SendMessage(in.ChatID, messages.ChannelDeleteFailed, messages.MainKeyboard())
			if sendErr != nil {
				return sendErr
			}
			return err
		}
		_, err := e.tg.SendMessage(in.ChatID, messages.ChannelDeleted, messages.MainKeyboard())
		return err

	case messages.BtnUploadToYouTube:
		return e.beginUpload(ctx, st, in.ChatID)

	case messages.BtnMainMenu:
		_, err := e.tg.SendMessage(in.ChatID, messages.MainMenu, messages.MainKeyboard())
		return err

	default:
		if libraryButtonRe.MatchString(in.Text) {
			return e.handleLibrarySelection(ctx, st, in.ChatID, in.Text)
		}
		_, err := e.tg.SendMessage(in.ChatID, messages.UseButtons, messages.MainKeyboard())
		return err
	}
}

func (e *Engine) beginChannelSetup(ctx context.Context, st *store.UserState, chatID int64) error {
	st.State = store.StateSetupSecret
	st.PendingClientSecret = nil
	st.PendingClientID = nil
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err := e.tg.SendMessage(chatID, messages.SetupStep1, nil)
	return err
}

func (e *Engine) handleSetupSecret(ctx context.Context, st *store.UserState, in *Incoming) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendSecretPlease, nil)
		return err
	}
	st.PendingClientSecret = &text
	st.State = store.StateSetupClientID
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err := e.tg.SendMessage(in.ChatID, messages.SetupStep2, nil)
	return err
}

func (e *Engine) handleSetupClientID(ctx context.Context, st *store.UserState, in *Incoming) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendClientIDPlease, nil)
		return err
	}
	st.PendingClientID = &text
	st.State = store.StateSetupToken
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}
	_, err := e.tg.SendMessage(in.ChatID, messages.SetupStep3, nil)
	return err
}

// handleSetupToken completes channel setup. Verification failure keeps the
// user in this state with the pending fields intact, so only the token has
// to be re-sent.
func (e *Engine) handleSetupToken(ctx context.Context, st *store.UserState, in *Incoming) error {
	refreshToken := strings.TrimSpace(in.Text)
	if refreshToken == "" {
		_, err := e.tg.SendMessage(in.ChatID, messages.SendTokenPlease, nil)
		return err
	}
	if st.PendingClientSecret == nil || st.PendingClientID == nil {
		return e.beginChannelSetup(ctx, st, in.ChatID)
	}

	if _, err := e.tg.SendMessage(in.ChatID, messages.VerifyingCredentials, nil); err != nil {
		return err
	}

	creds := youtube.Credentials{
		ClientID:     *st.PendingClientID,
		ClientSecret: *st.PendingClientSecret,
		RefreshToken: refreshToken,
	}
	channel, err := e.verifier.Verify(ctx, creds)
	if err != nil {
		botLog.WithError(err).WithField("user_id", st.UserID).Warn("credential verification failed")
		_, sendErr := e.tg.SendMessage(in.ChatID, messages.CredentialVerFailed(err.Error()), nil)
		return sendErr
	}

	if err := e.store.SaveCredential(ctx, &store.ChannelCredential{
		UserID:       st.UserID,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: creds.RefreshToken,
		ChannelID:    channel.ID,
		ChannelTitle: channel.Title,
	}); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	st.PendingClientSecret = nil
	st.PendingClientID = nil
	st.State = store.StateIdle
	if err := e.store.SaveUserState(ctx, st); err != nil {
		return err
	}

	_, err = e.tg.SendMessage(in.ChatID, messages.SetupSuccess(channel.Title), messages.MainKeyboard())
	return err
}

// HandleCallback routes one inline-button press.
func (e *Engine) HandleCallback(ctx context.Context, cb *Callback) error {
	if err := e.tg.AnswerCallback(cb.ID, ""); err != nil {
		botLog.WithError(err).Debug("answer callback")
	}

	st, err := e.store.GetOrCreateUserState(ctx, cb.UserID)
	if err != nil {
		return fmt.Errorf("load user state: %w", err)
	}

	if taskID, ok := strings.CutPrefix(cb.Data, messages.CbUploadFromLibrary); ok {
		return e.uploadFromLibrary(ctx, st, cb.ChatID, taskID)
	}

	switch cb.Data {
	case messages.CbStartGeneration:
		st.State = store.StateWaitingVideo
		st.CurrentMessageID = &cb.MessageID
		if err := e.store.SaveUserState(ctx, st); err != nil {
			return err
		}
		return e.tg.EditMessageText(cb.ChatID, cb.MessageID, messages.VideoRequest, nil)

	case messages.CbSetupYouTube:
		st.State = store.StateSetupSecret
		st.PendingClientSecret = nil
		st.PendingClientID = nil
		if err := e.store.SaveUserState(ctx, st); err != nil {
			return err
		}
		return e.tg.EditMessageText(cb.ChatID, cb.MessageID, messages.SetupStep1, nil)

	case messages.CbVideoLibrary:
		return e.showLibrary(ctx, st, cb.ChatID)

	case messages.CbBackToMain:
		_, err := e.tg.SendMessage(cb.ChatID, messages.MainMenu, messages.MainKeyboard())
		return err

	case messages.CbCancel:
		return e.handleCancel(ctx, st, cb.ChatID)

	default:
		botLog.WithField("data", cb.Data).Warn("unknown callback data")
		return nil
	}
}
