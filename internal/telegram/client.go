package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Message is the subset of a sent message the bot keeps track of.
type Message struct {
	MessageID int
	ChatID    int64
}

// ReplyMarkup is either a tgbotapi reply keyboard, inline keyboard, or nil.
type ReplyMarkup interface{}

// API is the surface of the Telegram transport the handlers use. Tests
// substitute a recording fake.
type API interface {
	SendMessage(chatID int64, text string, markup ReplyMarkup) (*Message, error)
	EditMessageText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	SendVideo(chatID int64, videoURL string) error
	AnswerCallback(callbackID, text string) error
	FileURL(fileID string) (string, int64, error)
}

// Client wraps the bot API client behind the API interface.
type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(bot *tgbotapi.BotAPI) *Client { return &Client{bot: bot} }

func (c *Client) SendMessage(chatID int64, text string, markup ReplyMarkup) (*Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &Message{MessageID: sent.MessageID, ChatID: chatID}, nil
}

func (c *Client) EditMessageText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	if _, err := c.bot.Send(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) SendVideo(chatID int64, videoURL string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileURL(videoURL))
	if _, err := c.bot.Send(video); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := c.bot.Request(cb); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// FileURL resolves a file id to a direct download URL and the file size.
func (c *Client) FileURL(fileID string) (string, int64, error) {
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", 0, fmt.Errorf("get file: %w", err)
	}
	return f.Link(c.bot.Token), int64(f.FileSize), nil
}
