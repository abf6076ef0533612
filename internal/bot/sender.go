package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender wraps the Telegram API with the few send shapes the engines need.
// It is the Notifier implementation handed to the cash engine.
type Sender struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewSender wraps the given bot API.
func NewSender(api *tgbotapi.BotAPI, logger *zap.Logger) *Sender {
	return &Sender{api: api, logger: logger}
}

// SendText sends a plain text message.
func (s *Sender) SendText(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendEditable sends a plain text message and returns its message ID so the
// caller can edit it in place later.
func (s *Sender) SendEditable(chatID int64, text string) (int, error) {
	sent, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditText replaces the text of a previously sent message.
func (s *Sender) EditText(chatID int64, messageID int, text string) error {
	_, err := s.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// SendPhoto sends an image with a Markdown caption.
func (s *Sender) SendPhoto(chatID int64, name string, photo []byte, caption string) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: photo})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.api.Send(msg)
	return err
}
