package commands

import "errors"

var (
	// ErrUnknownCommand is returned to the caller only, nothing is sent to the chat.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrForbidden means the scope check failed. The handler is not invoked and
	// the chat gets no reply.
	ErrForbidden = errors.New("command not allowed here")
	// ErrNothingToEdit is returned by Context.Edit before the bot has sent anything.
	ErrNothingToEdit = errors.New("no previous bot message to edit")
	// ErrHandlerFailed wraps an error or panic raised by a step handler.
	ErrHandlerFailed = errors.New("command handler failed")
	// ErrStepLoop guards against flows that keep jumping between prompt-less steps.
	ErrStepLoop = errors.New("too many step transitions")
)
