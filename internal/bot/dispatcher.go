package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/motionbotdev/motionbot/internal/messages"
)

// Deduper remembers which update ids were already handled.
type Deduper interface {
	MarkUpdateSeen(ctx context.Context, updateID int) (bool, error)
}

// Dispatcher consumes raw Telegram updates, drops duplicates, and feeds
// normalized events to the engine. Each update runs in its own goroutine so
// a slow conversion or upload never blocks other users.
type Dispatcher struct {
	engine *Engine
	dedupe Deduper
}

func NewDispatcher(engine *Engine, dedupe Deduper) *Dispatcher {
	return &Dispatcher{engine: engine, dedupe: dedupe}
}

// Run processes updates until ctx is done or the channel closes.
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			d.dispatch(ctx, upd)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, upd tgbotapi.Update) {
	first, err := d.dedupe.MarkUpdateSeen(ctx, upd.UpdateID)
	if err != nil {
		botLog.WithError(err).Warn("update dedupe unavailable")
	}
	if !first {
		botLog.WithField("update_id", upd.UpdateID).Debug("duplicate update dropped")
		return
	}

	switch {
	case upd.Message != nil:
		in := normalizeMessage(upd)
		go func() {
			defer d.recover(in.ChatID)
			if err := d.engine.HandleMessage(ctx, in); err != nil {
				botLog.WithError(err).WithField("user_id", in.UserID).Error("handle message")
				d.sendError(in.ChatID)
			}
		}()

	case upd.CallbackQuery != nil:
		cb := normalizeCallback(upd)
		go func() {
			defer d.recover(cb.ChatID)
			if err := d.engine.HandleCallback(ctx, cb); err != nil {
				botLog.WithError(err).WithField("user_id", cb.UserID).Error("handle callback")
				d.sendError(cb.ChatID)
			}
		}()
	}
}

func (d *Dispatcher) recover(chatID int64) {
	if r := recover(); r != nil {
		botLog.WithField("panic", r).Error("handler panicked")
		d.sendError(chatID)
	}
}

func (d *Dispatcher) sendError(chatID int64) {
	if chatID == 0 {
		return
	}
	if _, err := d.engine.tg.SendMessage(chatID, messages.GenericError, nil); err != nil {
		botLog.WithError(err).Error("send error message")
	}
}

func normalizeMessage(upd tgbotapi.Update) *Incoming {
	msg := upd.Message
	in := &Incoming{
		UpdateID:  upd.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		in.UserID = strconv.FormatInt(msg.From.ID, 10)
	}
	if msg.Video != nil {
		in.Video = &MediaRef{
			FileID:   msg.Video.FileID,
			FileName: msg.Video.FileName,
			MimeType: msg.Video.MimeType,
			Size:     int64(msg.Video.FileSize),
		}
	}
	if len(msg.Photo) > 0 {
		// Telegram sends several resolutions; the last is the largest.
		p := msg.Photo[len(msg.Photo)-1]
		in.Photo = &MediaRef{
			FileID: p.FileID,
			Size:   int64(p.FileSize),
		}
	}
	if msg.Document != nil {
		in.Document = &MediaRef{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     int64(msg.Document.FileSize),
		}
	}
	return in
}

func normalizeCallback(upd tgbotapi.Update) *Callback {
	q := upd.CallbackQuery
	cb := &Callback{
		ID:   q.ID,
		Data: q.Data,
	}
	if q.From != nil {
		cb.UserID = strconv.FormatInt(q.From.ID, 10)
	}
	if q.Message != nil {
		cb.ChatID = q.Message.Chat.ID
		cb.MessageID = q.Message.MessageID
	}
	return cb
}
