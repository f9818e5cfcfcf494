package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/reconcile"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
	"github.com/motionbotdev/motionbot/internal/token"
)

type nopTG struct{}

func (nopTG) SendMessage(chatID int64, text string, markup telegram.ReplyMarkup) (*telegram.Message, error) {
	return &telegram.Message{MessageID: 1, ChatID: chatID}, nil
}
func (nopTG) EditMessageText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return nil
}
func (nopTG) DeleteMessage(chatID int64, messageID int) error { return nil }
func (nopTG) SendVideo(chatID int64, videoURL string) error   { return nil }
func (nopTG) AnswerCallback(callbackID, text string) error    { return nil }
func (nopTG) FileURL(fileID string) (string, int64, error)    { return "", 0, nil }

type nopPoller struct{}

func (nopPoller) Poll(ctx context.Context, taskID string) (*kie.Status, error) {
	return &kie.Status{TaskID: taskID, State: kie.StateWaiting}, nil
}

func newTestServer(t *testing.T) (http.Handler, *store.Store, *token.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&store.UserState{}, &store.Task{}, &store.LibraryVideo{}, &store.ChannelCredential{}, &store.UploadAttempt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	st := store.New(db, store.NewSealer("test"))
	signer := token.NewSigner("test", time.Hour)
	rec := reconcile.New(st, nopPoller{}, nopTG{})
	return NewRouter(st, rec, signer, ""), st, signer
}

func postCallback(t *testing.T, h http.Handler, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	url := "/api/callback"
	if tok != "" {
		url += "?token=" + tok
	}
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCallback_RejectsBadToken(t *testing.T) {
	h, _, _ := newTestServer(t)

	w := postCallback(t, h, "garbage", `{"taskId":"t1","state":"success"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestCallback_MissingTaskID(t *testing.T) {
	h, _, signer := newTestServer(t)
	tok, _ := signer.Sign("42")

	w := postCallback(t, h, tok, `{"state":"success"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCallback_UnknownTask(t *testing.T) {
	h, _, signer := newTestServer(t)
	tok, _ := signer.Sign("42")

	w := postCallback(t, h, tok, `{"taskId":"nope","state":"success"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCallback_ResolvesTask(t *testing.T) {
	h, st, signer := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateTask(ctx, &store.Task{TaskID: "t1", UserID: "42", ChatID: 100}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	tok, _ := signer.Sign("42")

	body := `{"taskId":"t1","state":"fail","failCode":"500","failMsg":"model exploded"}`
	w := postCallback(t, h, tok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	task, err := st.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Status != store.TaskFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}

	// A retry of the same webhook is acknowledged without changing anything.
	w = postCallback(t, h, tok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", w.Code)
	}
}

func TestCallback_NestedDataEnvelope(t *testing.T) {
	h, st, signer := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateTask(ctx, &store.Task{TaskID: "t2", UserID: "42", ChatID: 100}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	tok, _ := signer.Sign("42")

	body := `{"code":200,"data":{"taskId":"t2","state":"fail","failMsg":"nope"}}`
	w := postCallback(t, h, tok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	task, _ := st.GetTask(ctx, "t2")
	if task.Status != store.TaskFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
