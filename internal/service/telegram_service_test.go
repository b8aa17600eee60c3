package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/metrics"
	"blakkisvuohi/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func newTestTelegramService(sender domain.TelegramSender) (*TelegramService, *metrics.Metrics) {
	logger := zerolog.New(io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewTelegramService(sender, 0, 1, m, &logger).
		WithRetryPolicy(RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	return svc, m
}

func TestTelegramService_SendMessage(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, m := newTestTelegramService(sender)
	ctx := context.Background()

	t.Run("Plain", func(t *testing.T) {
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.Text == "hello" && msg.ChatID == 123 && msg.ReplyMarkup == nil
		})).Return(tgbotapi.Message{MessageID: 7}, nil).Once()

		id, err := svc.SendMessage(ctx, 123, "hello", domain.MessageOptions{})
		require.NoError(t, err)
		assert.Equal(t, 7, id)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues("text")))
	})

	t.Run("Keyboard", func(t *testing.T) {
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			if !ok || msg.ParseMode != models.ParseModeMarkdown {
				return false
			}
			kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
			return ok && kb.OneTimeKeyboard && len(kb.Keyboard) == 2 && kb.Keyboard[0][1].Text == "nainen"
		})).Return(tgbotapi.Message{MessageID: 8}, nil).Once()

		_, err := svc.SendMessage(ctx, 123, "*sukupuoli?*", domain.MessageOptions{
			ParseMode: models.ParseModeMarkdown,
			Keyboard:  [][]string{{"mies", "nainen"}, {"peru"}},
		})
		require.NoError(t, err)
	})

	t.Run("RemoveKeyboard", func(t *testing.T) {
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			if !ok {
				return false
			}
			rm, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
			return ok && rm.RemoveKeyboard
		})).Return(tgbotapi.Message{MessageID: 9}, nil).Once()

		_, err := svc.SendMessage(ctx, 123, "ok", domain.MessageOptions{RemoveKeyboard: true})
		require.NoError(t, err)
	})

	sender.AssertExpectations(t)
}

func TestTelegramService_RetryOn429(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, m := newTestTelegramService(sender)

	limited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 0}}
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, limited).Once()
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{MessageID: 11}, nil).Once()

	id, err := svc.SendMessage(context.Background(), 1, "x", domain.MessageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 11, id)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendRetries))
	sender.AssertExpectations(t)
}

func TestTelegramService_PermanentError(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, m := newTestTelegramService(sender)

	forbidden := &tgbotapi.Error{Code: 403, Message: "bot was blocked by the user"}
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, forbidden).Once()

	_, err := svc.SendMessage(context.Background(), 1, "x", domain.MessageOptions{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "send message", te.Op)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("telegram")))
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestTelegramService_Uploads(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, _ := newTestTelegramService(sender)
	ctx := context.Background()

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		p, ok := c.(tgbotapi.PhotoConfig)
		return ok && p.ChatID == 5
	})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		d, ok := c.(tgbotapi.DocumentConfig)
		return ok && d.ChatID == 5
	})).Return(tgbotapi.Message{MessageID: 2}, nil).Once()

	id, err := svc.SendPhoto(ctx, 5, "graph.png", bytes.NewReader([]byte("png")), domain.MessageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = svc.SendDocument(ctx, 5, "juomat.xlsx", bytes.NewReader([]byte("xlsx")), domain.MessageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	sender.AssertExpectations(t)
}

func TestTelegramService_EditMessageText(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, _ := newTestTelegramService(sender)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		e, ok := c.(tgbotapi.EditMessageTextConfig)
		return ok && e.MessageID == 42 && e.Text == "updated"
	})).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, svc.EditMessageText(context.Background(), 1, 42, "updated", domain.MessageOptions{}))

	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("network")).Once()
	assert.Error(t, svc.EditMessageText(context.Background(), 1, 42, "again", domain.MessageOptions{}))
	sender.AssertExpectations(t)
}

func TestTelegramService_Passthrough(t *testing.T) {
	sender := new(mockTelegramSender)
	svc, _ := newTestTelegramService(sender)

	sender.On("GetSelf").Return(tgbotapi.User{UserName: "blakkisbot"}).Once()
	sender.On("StopReceivingUpdates").Return().Once()

	assert.Equal(t, "blakkisbot", svc.GetSelf().UserName)
	svc.StopReceivingUpdates()
	sender.AssertExpectations(t)
}
