package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TransportError wraps a failed outbound Telegram call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TelegramService implements domain.Transport on top of the bot API client.
// Calls are throttled and retried when Telegram answers 429.
type TelegramService struct {
	bot     domain.TelegramSender
	limiter *rate.Limiter
	retry   RetryPolicy
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

func NewTelegramService(bot domain.TelegramSender, rps float64, burst int, m *metrics.Metrics, logger *zerolog.Logger) *TelegramService {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &TelegramService{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
		retry:   DefaultSendRetry,
		metrics: m,
		logger:  logger,
	}
}

// WithRetryPolicy replaces the retry policy, used by tests to avoid sleeping.
func (s *TelegramService) WithRetryPolicy(p RetryPolicy) *TelegramService {
	s.retry = p
	return s
}

func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string, opts domain.MessageOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = opts.ParseMode
	if markup := replyMarkup(opts); markup != nil {
		msg.ReplyMarkup = markup
	}
	return s.send(ctx, "send message", "text", msg)
}

func (s *TelegramService) SendPhoto(ctx context.Context, chatID int64, name string, r io.Reader, opts domain.MessageOptions) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileReader{Name: name, Reader: r})
	photo.ParseMode = opts.ParseMode
	if markup := replyMarkup(opts); markup != nil {
		photo.ReplyMarkup = markup
	}
	return s.sendOnce(ctx, "send photo", "photo", photo)
}

func (s *TelegramService) SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, opts domain.MessageOptions) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: name, Reader: r})
	doc.ParseMode = opts.ParseMode
	if markup := replyMarkup(opts); markup != nil {
		doc.ReplyMarkup = markup
	}
	return s.sendOnce(ctx, "send document", "document", doc)
}

// EditMessageText replaces the text of a message the bot sent earlier. Reply
// keyboards cannot be attached to edits and are ignored.
func (s *TelegramService) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts domain.MessageOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = opts.ParseMode
	_, err := s.send(ctx, "edit message", "edit", edit)
	return err
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}

func (s *TelegramService) send(ctx context.Context, op, kind string, c tgbotapi.Chattable) (int, error) {
	var sent tgbotapi.Message
	err := s.retry.Do(ctx, func() (time.Duration, bool, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, false, err
		}
		msg, err := s.bot.Send(c)
		if err != nil {
			after, retry := retryable(err)
			if retry {
				s.logger.Warn().Err(err).Str("op", op).Dur("retry_after", after).Msg("Telegram rate limit hit")
				if s.metrics != nil {
					s.metrics.SendRetries.Inc()
				}
			}
			return after, retry, err
		}
		sent = msg
		return 0, false, nil
	})
	return s.finish(op, kind, sent.MessageID, err)
}

// sendOnce is used for uploads, whose readers cannot be replayed.
func (s *TelegramService) sendOnce(ctx context.Context, op, kind string, c tgbotapi.Chattable) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return s.finish(op, kind, 0, err)
	}
	msg, err := s.bot.Send(c)
	return s.finish(op, kind, msg.MessageID, err)
}

func (s *TelegramService) finish(op, kind string, messageID int, err error) (int, error) {
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncError("telegram")
		}
		return 0, &TransportError{Op: op, Err: err}
	}
	if s.metrics != nil {
		s.metrics.MessagesSent.WithLabelValues(kind).Inc()
	}
	return messageID, nil
}

func retryable(err error) (time.Duration, bool) {
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return 0, false
	}
	if tgErr.Code != http.StatusTooManyRequests && tgErr.RetryAfter == 0 {
		return 0, false
	}
	return time.Duration(tgErr.RetryAfter) * time.Second, true
}

func replyMarkup(opts domain.MessageOptions) interface{} {
	if opts.RemoveKeyboard {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	if len(opts.Keyboard) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(opts.Keyboard))
	for _, row := range opts.Keyboard {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}
