package commands

import (
	"context"
	"io"

	"blakkisvuohi/internal/models"

	"github.com/rs/zerolog"
)

const noStep = -1

// Context is handed to every step handler of one invocation. It is not safe
// for concurrent use.
type Context struct {
	ctx      context.Context
	registry *Registry
	def      Definition
	event    Event
	user     *models.User
	session  *models.Session
	input    string
	args     []string
	logger   *zerolog.Logger

	replies int
	next    int
	ended   bool
}

// Context returns the context of the update being handled.
func (c *Context) Context() context.Context { return c.ctx }

// Reply sends text to the chat the command came from.
func (c *Context) Reply(text string, opts ...Option) error {
	id, err := c.registry.transport.SendMessage(c.ctx, c.event.ChatID, text, buildOptions(opts))
	return c.sent(id, err)
}

func (c *Context) ReplyWithImage(name string, r io.Reader, opts ...Option) error {
	id, err := c.registry.transport.SendPhoto(c.ctx, c.event.ChatID, name, r, buildOptions(opts))
	return c.sent(id, err)
}

func (c *Context) ReplyWithDocument(name string, r io.Reader, opts ...Option) error {
	id, err := c.registry.transport.SendDocument(c.ctx, c.event.ChatID, name, r, buildOptions(opts))
	return c.sent(id, err)
}

// Edit replaces the text of the last message the bot sent in this flow.
func (c *Context) Edit(text string, opts ...Option) error {
	if c.session.BotMessageID == 0 {
		return ErrNothingToEdit
	}
	return c.registry.transport.EditMessageText(c.ctx, c.event.ChatID, c.session.BotMessageID, text, buildOptions(opts))
}

func (c *Context) sent(id int, err error) error {
	if err != nil {
		return err
	}
	c.replies++
	if id != 0 {
		c.session.BotMessageID = id
	}
	return nil
}

// End finishes the flow. Returning from a handler without calling Next has the
// same effect.
func (c *Context) End() {
	c.ended = true
	c.next = noStep
}

// Next moves the flow to the step with the given index once the handler returns.
func (c *Context) Next(step int) {
	c.ended = false
	c.next = step
}

func (c *Context) Replies() int { return c.replies }

func (c *Context) IsKnownUser() bool { return c.user != nil }

func (c *Context) IsPrivate() bool { return c.event.IsPrivate() }

func (c *Context) SenderID() int64 { return c.event.SenderID }

func (c *Context) ChatID() int64 { return c.event.ChatID }

func (c *Context) SenderUsername() string { return c.event.SenderUsername }

func (c *Context) Command() string { return c.def.Name }

// User is nil for unregistered senders.
func (c *Context) User() *models.User { return c.user }

// SetUser replaces the caller's user, used once registration has stored it.
func (c *Context) SetUser(u *models.User) { c.user = u }

// Input is the text being handled: the answer to a prompt, or the joined
// arguments when a step runs straight from the command.
func (c *Context) Input() string { return c.input }

func (c *Context) Args() []string { return c.args }

// Get returns an answer stored earlier in the flow.
func (c *Context) Get(key string) string { return c.session.GetString(key) }

func (c *Context) GetInt(key string) int { return c.session.GetInt(key) }

func (c *Context) GetFloat(key string) float64 { return c.session.GetFloat(key) }

// Set stores a value that later steps of the flow can read.
func (c *Context) Set(key, value string) {
	if c.session.Data == nil {
		c.session.Data = make(map[string]string)
	}
	c.session.Data[key] = value
}

func (c *Context) Logger() *zerolog.Logger { return c.logger }
