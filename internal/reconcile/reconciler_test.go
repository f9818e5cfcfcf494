package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/messages"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
)

type fakeTG struct {
	mu      sync.Mutex
	texts   []string
	markups []telegram.ReplyMarkup
	videos  []string
}

func (f *fakeTG) SendMessage(chatID int64, text string, markup telegram.ReplyMarkup) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.markups = append(f.markups, markup)
	return &telegram.Message{MessageID: len(f.texts), ChatID: chatID}, nil
}

func (f *fakeTG) EditMessageText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeTG) DeleteMessage(chatID int64, messageID int) error { return nil }

func (f *fakeTG) SendVideo(chatID int64, videoURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, videoURL)
	return nil
}

func (f *fakeTG) AnswerCallback(callbackID, text string) error { return nil }

func (f *fakeTG) FileURL(fileID string) (string, int64, error) { return "", 0, nil }

func (f *fakeTG) containsText(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

func (f *fakeTG) markupFor(text string) telegram.ReplyMarkup {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.texts {
		if t == text {
			return f.markups[i]
		}
	}
	return nil
}

type fakePoller struct {
	status *kie.Status
	err    error
}

func (f *fakePoller) Poll(ctx context.Context, taskID string) (*kie.Status, error) {
	return f.status, f.err
}

func newTestReconciler(t *testing.T) (*Reconciler, *store.Store, *fakeTG) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&store.UserState{}, &store.Task{}, &store.LibraryVideo{}, &store.ChannelCredential{}, &store.UploadAttempt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	st := store.New(db, store.NewSealer("test"))
	tg := &fakeTG{}
	return New(st, &fakePoller{}, tg), st, tg
}

func seedTask(t *testing.T, st *store.Store, taskID string) {
	t.Helper()
	ctx := context.Background()
	if err := st.CreateTask(ctx, &store.Task{TaskID: taskID, UserID: "42", ChatID: 100}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	prompt := "dancing robot"
	us, _ := st.GetOrCreateUserState(ctx, "42")
	us.State = store.StateGenerating
	us.TaskID = &taskID
	us.Prompt = &prompt
	if err := st.SaveUserState(ctx, us); err != nil {
		t.Fatalf("seed state: %v", err)
	}
}

func TestResolve_Success(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:     "t1",
		State:      kie.StateSuccess,
		ResultJSON: `{"resultUrls":["https://cdn/v.mp4"]}`,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !won {
		t.Fatalf("first resolve should win")
	}

	task, _ := st.GetTask(ctx, "t1")
	if task.Status != store.TaskSucceeded {
		t.Fatalf("task status = %q", task.Status)
	}

	video, err := st.GetLibraryVideo(ctx, "t1")
	if err != nil || video == nil {
		t.Fatalf("library video missing: %v", err)
	}
	if video.VideoURL != "https://cdn/v.mp4" {
		t.Fatalf("library url = %q", video.VideoURL)
	}
	if video.Prompt == nil || *video.Prompt != "dancing robot" {
		t.Fatalf("library prompt = %v", video.Prompt)
	}

	// Back to idle, but the task reference survives for the upload flow.
	us, _ := st.GetUserState(ctx, "42")
	if us.State != store.StateIdle {
		t.Fatalf("user state = %q", us.State)
	}
	if us.TaskID == nil || *us.TaskID != "t1" {
		t.Fatalf("task id cleared on success: %v", us.TaskID)
	}

	if len(tg.videos) != 1 || tg.videos[0] != "https://cdn/v.mp4" {
		t.Fatalf("video not delivered: %v", tg.videos)
	}
	if !tg.containsText(messages.GenerationSucceeded) {
		t.Fatalf("success message not sent")
	}
}

func TestResolve_SuccessOffersPublishWithChannel(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	if err := st.SaveCredential(ctx, &store.ChannelCredential{
		UserID: "42", ClientID: "id", ClientSecret: "sec", RefreshToken: "tok", ChannelTitle: "Ch",
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:     "t1",
		State:      kie.StateSuccess,
		ResultJSON: `{"resultUrls":["https://cdn/v.mp4"]}`,
	})
	if err != nil || !won {
		t.Fatalf("resolve: won=%v err=%v", won, err)
	}

	// A configured channel turns the success message into a one-tap
	// publish entry point.
	markup, ok := tg.markupFor(messages.GenerationSucceeded).(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("success message markup = %T, want inline keyboard", tg.markupFor(messages.GenerationSucceeded))
	}
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("keyboard shape = %v", markup.InlineKeyboard)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.CallbackData == nil || *btn.CallbackData != messages.CbUploadFromLibrary+"t1" {
		t.Fatalf("callback data = %v", btn.CallbackData)
	}
}

func TestResolve_SuccessWithoutChannelKeepsMainKeyboard(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:     "t1",
		State:      kie.StateSuccess,
		ResultJSON: `{"resultUrls":["https://cdn/v.mp4"]}`,
	})
	if err != nil || !won {
		t.Fatalf("resolve: won=%v err=%v", won, err)
	}
	if _, ok := tg.markupFor(messages.GenerationSucceeded).(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Fatalf("success message markup = %T, want reply keyboard", tg.markupFor(messages.GenerationSucceeded))
	}
}

func TestResolve_SuccessWithoutUserStateStillFillsLibrary(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()

	// Only the task row exists; no user state was ever saved. The library
	// entry must still be written because the task never resolves twice.
	if err := st.CreateTask(ctx, &store.Task{TaskID: "t1", UserID: "42", ChatID: 100}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:     "t1",
		State:      kie.StateSuccess,
		ResultJSON: `{"resultUrls":["https://cdn/v.mp4"]}`,
	})
	if err != nil || !won {
		t.Fatalf("resolve: won=%v err=%v", won, err)
	}

	video, err := st.GetLibraryVideo(ctx, "t1")
	if err != nil || video == nil {
		t.Fatalf("library video missing: %v", err)
	}
	if video.Prompt != nil {
		t.Fatalf("prompt = %v, want nil without state", video.Prompt)
	}
	if len(tg.videos) != 1 {
		t.Fatalf("video not delivered: %v", tg.videos)
	}
}

func TestResolve_SecondObservationIsNoOp(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	success := &kie.Status{TaskID: "t1", State: kie.StateSuccess, ResultJSON: `{"resultUrls":["https://cdn/v.mp4"]}`}
	if won, err := r.Resolve(ctx, success); err != nil || !won {
		t.Fatalf("first resolve: won=%v err=%v", won, err)
	}

	videosBefore := len(tg.videos)

	// The same completion arriving again (webhook retry, racing poller)
	// must not notify twice or flip the outcome.
	won, err := r.Resolve(ctx, &kie.Status{TaskID: "t1", State: kie.StateFail, FailMsg: "late failure"})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if won {
		t.Fatalf("second resolve should lose")
	}
	if len(tg.videos) != videosBefore {
		t.Fatalf("losing resolve sent a video")
	}

	task, _ := st.GetTask(ctx, "t1")
	if task.Status != store.TaskSucceeded {
		t.Fatalf("status flipped to %q", task.Status)
	}
}

func TestResolve_Failure(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:   "t1",
		State:    kie.StateFail,
		FailCode: "500",
		FailMsg:  "model exploded",
	})
	if err != nil || !won {
		t.Fatalf("resolve: won=%v err=%v", won, err)
	}

	task, _ := st.GetTask(ctx, "t1")
	if task.Status != store.TaskFailed {
		t.Fatalf("status = %q", task.Status)
	}
	if task.FailMsg == nil || *task.FailMsg != "model exploded" {
		t.Fatalf("fail msg = %v", task.FailMsg)
	}

	us, _ := st.GetUserState(ctx, "42")
	if us.State != store.StateIdle || us.TaskID != nil {
		t.Fatalf("user state after failure = %q taskID=%v", us.State, us.TaskID)
	}

	if !tg.containsText("model exploded") {
		t.Fatalf("failure detail not surfaced")
	}

	if v, _ := st.GetLibraryVideo(ctx, "t1"); v != nil {
		t.Fatalf("failed task reached the library")
	}
}

func TestResolve_SuccessWithoutURLIsFailure(t *testing.T) {
	r, st, tg := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	won, err := r.Resolve(ctx, &kie.Status{
		TaskID:     "t1",
		State:      kie.StateSuccess,
		ResultJSON: `{"resultUrls":[]}`,
	})
	if err != nil || !won {
		t.Fatalf("resolve: won=%v err=%v", won, err)
	}

	task, _ := st.GetTask(ctx, "t1")
	if task.Status != store.TaskFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
	if v, _ := st.GetLibraryVideo(ctx, "t1"); v != nil {
		t.Fatalf("output-less success reached the library")
	}
	if !tg.containsText(messages.GenerationNoURL) {
		t.Fatalf("missing-output message not sent")
	}
}

func TestHandleCallback_NonTerminalMarksRunning(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()
	seedTask(t, st, "t1")

	won, err := r.HandleCallback(ctx, &kie.Status{TaskID: "t1", State: kie.StateGenerating})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if won {
		t.Fatalf("non-terminal callback reported won")
	}

	task, _ := st.GetTask(ctx, "t1")
	if task.Status != store.TaskRunning {
		t.Fatalf("status = %q, want running", task.Status)
	}
}

func TestWatch_DuplicateIsNoOp(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	seedTask(t, st, "t1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Watch(ctx, "t1", 100)
	r.Watch(ctx, "t1", 100)
	if !r.Watching("t1") {
		t.Fatalf("task not watched")
	}
	cancel()
}
