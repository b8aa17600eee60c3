package commands

import "blakkisvuohi/internal/domain"

type Option func(*domain.MessageOptions)

func WithParseMode(mode string) Option {
	return func(o *domain.MessageOptions) {
		o.ParseMode = mode
	}
}

// WithKeyboard shows a one-time reply keyboard with the given rows of labels.
func WithKeyboard(rows [][]string) Option {
	return func(o *domain.MessageOptions) {
		o.Keyboard = rows
		o.RemoveKeyboard = false
	}
}

func WithRemoveKeyboard() Option {
	return func(o *domain.MessageOptions) {
		o.Keyboard = nil
		o.RemoveKeyboard = true
	}
}

func buildOptions(opts []Option) domain.MessageOptions {
	var o domain.MessageOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
