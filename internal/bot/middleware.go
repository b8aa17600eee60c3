package bot

import (
	"context"
	"runtime/debug"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/domain"

	"github.com/rs/zerolog"
)

const msgRateLimited = "Liikaa viestejä, odota hetki."

func (b *Bot) withRecovery(l *zerolog.Logger, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.IncError("panic")
			}
			l.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-sender rate limit. A failing limiter lets the update
// through.
func (b *Bot) allow(ctx context.Context, ev commands.Event) bool {
	if b.state == nil {
		return true
	}
	l := zerolog.Ctx(ctx)

	allowed, err := b.state.CheckRateLimit(ctx, ev.SenderID, b.limits.RateLimitMessages, b.limits.RateLimitWindow)
	if err != nil {
		l.Error().Err(err).Int64("sender_id", ev.SenderID).Msg("Rate limit check failed")
		return true
	}
	if allowed {
		return true
	}

	if b.metrics != nil {
		b.metrics.RateLimited.Inc()
	}
	l.Warn().Int64("sender_id", ev.SenderID).Msg("Rate limit exceeded")

	// groups stay quiet
	if ev.IsPrivate() && b.transport != nil {
		if _, err := b.transport.SendMessage(ctx, ev.ChatID, msgRateLimited, domain.MessageOptions{}); err != nil {
			l.Warn().Err(err).Msg("failed to send rate limit notice")
		}
	}
	return false
}
