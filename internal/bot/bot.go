package bot

import (
	"context"
	"errors"
	"os"
	"time"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/metrics"
	"blakkisvuohi/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// UpdateSource delivers Telegram updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// Dispatcher runs commands and flow answers.
type Dispatcher interface {
	HandleEvent(ctx context.Context, ev commands.Event) error
	SetBotName(name string)
}

// Members removes people from group statistics when they leave a chat.
type Members interface {
	FindUser(ctx context.Context, telegramID int64) (*models.User, error)
	LeaveGroup(ctx context.Context, groupID int64, user *models.User) error
}

type Limits struct {
	// RateLimitMessages per RateLimitWindow are accepted from one sender.
	RateLimitMessages int
	RateLimitWindow   time.Duration
}

type Bot struct {
	updates    UpdateSource
	dispatcher Dispatcher
	state      domain.StateManager
	members    Members
	transport  domain.Transport
	limits     Limits
	metrics    *metrics.Metrics
	logger     *zerolog.Logger
}

func NewBot(
	updates UpdateSource,
	dispatcher Dispatcher,
	state domain.StateManager,
	members Members,
	transport domain.Transport,
	limits Limits,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if limits.RateLimitMessages <= 0 {
		limits.RateLimitMessages = models.RateLimitMessages
	}
	if limits.RateLimitWindow <= 0 {
		limits.RateLimitWindow = models.RateLimitWindow * time.Second
	}

	return &Bot{
		updates:    updates,
		dispatcher: dispatcher,
		state:      state,
		members:    members,
		transport:  transport,
		limits:     limits,
		metrics:    m,
		logger:     logger,
	}
}

// Start consumes updates until ctx is cancelled or the channel closes.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	self := b.updates.GetSelf()
	b.dispatcher.SetBotName(self.UserName)
	updates := b.updates.GetUpdatesChan(u)

	b.logger.Info().Str("username", self.UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.updates == nil {
		return
	}
	b.updates.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdatesProcessed.Inc()
			b.metrics.UpdateDuration.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(&l, func() {
		msg := update.Message
		if msg == nil || msg.From == nil || msg.From.IsBot {
			return
		}

		if msg.LeftChatMember != nil {
			b.handleLeft(updateCtx, msg.Chat.ID, msg.LeftChatMember.ID)
			return
		}

		ev, ok := eventFromMessage(msg)
		if !ok {
			return
		}

		if !b.allow(updateCtx, ev) {
			return
		}

		b.dispatch(updateCtx, ev)
	})
}

func (b *Bot) dispatch(ctx context.Context, ev commands.Event) {
	l := zerolog.Ctx(ctx)
	err := b.dispatcher.HandleEvent(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, commands.ErrUnknownCommand), errors.Is(err, commands.ErrForbidden):
		l.Debug().Err(err).Int64("chat_id", ev.ChatID).Msg("command ignored")
	default:
		if b.metrics != nil {
			b.metrics.IncError("dispatch")
		}
		l.Error().Err(err).Int64("chat_id", ev.ChatID).Msg("failed to handle update")
	}
}

func (b *Bot) handleLeft(ctx context.Context, chatID, telegramID int64) {
	if b.members == nil {
		return
	}
	l := zerolog.Ctx(ctx)

	u, err := b.members.FindUser(ctx, telegramID)
	if err != nil {
		l.Error().Err(err).Msg("failed to look up leaving member")
		return
	}
	if u == nil {
		return
	}
	if err := b.members.LeaveGroup(ctx, chatID, u); err != nil {
		l.Error().Err(err).Msg("failed to remove member from group")
	}
}

// eventFromMessage maps a Telegram message to a dispatcher event. Messages
// without text are skipped.
func eventFromMessage(msg *tgbotapi.Message) (commands.Event, bool) {
	if msg.Text == "" || msg.Chat == nil {
		return commands.Event{}, false
	}

	nick := msg.From.UserName
	if nick == "" {
		nick = msg.From.FirstName
	}

	return commands.Event{
		ChatID:         msg.Chat.ID,
		ChatType:       msg.Chat.Type,
		SenderID:       msg.From.ID,
		SenderUsername: nick,
		Text:           msg.Text,
		MessageID:      msg.MessageID,
	}, true
}
