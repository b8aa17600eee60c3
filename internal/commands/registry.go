package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/metrics"
	"blakkisvuohi/internal/models"

	"github.com/rs/zerolog"
)

const maxTransitions = 32

// Handler runs when a step accepts its input.
type Handler func(c *Context) error

// Prompt is sent when a step starts and again whenever its validation fails.
type Prompt struct {
	Text      string
	Keyboard  [][]string
	ParseMode string
	// Build, when set, computes text and keyboard from the flow state.
	Build func(c *Context) (string, [][]string, error)
}

// Step is one stage of a flow. A step without a Prompt runs as soon as it is
// entered. A nil Validate accepts any input.
type Step struct {
	Prompt   *Prompt
	Validate func(input string) bool
	OnValid  Handler
}

// Definition is a registered command and its steps.
type Definition struct {
	Name  string
	Help  string
	Scope Scope
	Steps []Step
}

// UserFinder resolves a Telegram sender to a registered user, nil when unknown.
type UserFinder interface {
	FindUser(ctx context.Context, telegramID int64) (*models.User, error)
}

// SessionStore persists pending flows.
type SessionStore interface {
	GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, key models.SessionKey) error
}

// Registry maps command names to flows and drives them. One flow at a time is
// pending per (chat, sender); starting a command replaces it.
type Registry struct {
	mu        sync.RWMutex
	defs      map[string]Definition
	botName   string
	users     UserFinder
	sessions  SessionStore
	transport domain.Transport
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
}

func NewRegistry(users UserFinder, sessions SessionStore, transport domain.Transport, m *metrics.Metrics, logger *zerolog.Logger) *Registry {
	return &Registry{
		defs:      make(map[string]Definition),
		users:     users,
		sessions:  sessions,
		transport: transport,
		metrics:   m,
		logger:    logger,
	}
}

// SetBotName makes the registry ignore "/cmd@otherbot" addressed to other bots.
func (r *Registry) SetBotName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.botName = strings.ToLower(name)
}

// Register adds or replaces a command.
func (r *Registry) Register(name, help string, scope Scope, steps ...Step) {
	name = normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[name] = Definition{Name: name, Help: help, Scope: scope, Steps: steps}
}

// RegisterUserCommand registers a command only registered users may run.
func (r *Registry) RegisterUserCommand(name, help string, scope Scope, steps ...Step) {
	r.Register(name, help, scope|ScopeUser, steps...)
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[normalizeName(name)]
	return def, ok
}

// Help lists "/name - help" lines for the commands the caller may run.
func (r *Registry) Help(private, knownUser bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		if def.Help == "" || !def.Scope.Allows(private, knownUser) {
			continue
		}
		lines = append(lines, def.Name+" - "+def.Help)
	}
	sort.Strings(lines)
	return lines
}

// HandleEvent routes a command to Call and any other text to HandleAnswer.
func (r *Registry) HandleEvent(ctx context.Context, ev Event) error {
	name, bot, args, ok := parseCommand(ev.Text)
	if !ok {
		return r.HandleAnswer(ctx, ev)
	}

	r.mu.RLock()
	self := r.botName
	r.mu.RUnlock()
	if bot != "" && self != "" && !strings.EqualFold(bot, self) {
		return nil
	}
	return r.Call(ctx, name, ev, args)
}

// Call starts the named command for the event's sender. Unknown and forbidden
// commands return an error without sending anything.
func (r *Registry) Call(ctx context.Context, name string, ev Event, args []string) error {
	def, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	c, err := r.newContext(ctx, def, ev, nil)
	if err != nil {
		return err
	}
	if !def.Scope.Allows(ev.IsPrivate(), c.IsKnownUser()) {
		r.count(def.Name, "forbidden")
		c.logger.Debug().Str("command", def.Name).Stringer("scope", def.Scope).Msg("command not allowed")
		return ErrForbidden
	}

	// starting a command replaces whatever was pending
	if err := r.sessions.ClearSession(ctx, ev.SessionKey()); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear pending session")
	}

	c.input = strings.Join(args, " ")
	c.args = args
	c.logger.Debug().Str("command", def.Name).Msg("command started")
	return r.run(c, 0)
}

// HandleAnswer feeds non-command text to the sender's pending flow. Without a
// pending flow the text is ignored.
func (r *Registry) HandleAnswer(ctx context.Context, ev Event) error {
	key := ev.SessionKey()
	session, err := r.sessions.GetSession(ctx, key)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}

	def, ok := r.Lookup(session.Command)
	if !ok || session.Step < 0 || session.Step >= len(def.Steps) {
		return r.sessions.ClearSession(ctx, key)
	}

	c, err := r.newContext(ctx, def, ev, session)
	if err != nil {
		return err
	}
	if !def.Scope.Allows(ev.IsPrivate(), c.IsKnownUser()) {
		r.count(def.Name, "forbidden")
		_ = r.sessions.ClearSession(ctx, key)
		return ErrForbidden
	}

	c.input = strings.TrimSpace(ev.Text)
	c.args = strings.Fields(ev.Text)

	step := def.Steps[session.Step]
	ok, err = r.safeValidate(c, step)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug().Str("command", def.Name).Int("step", session.Step).Msg("invalid answer, prompting again")
		return r.prompt(c, session.Step)
	}
	return r.invoke(c, session.Step)
}

func (r *Registry) newContext(ctx context.Context, def Definition, ev Event, session *models.Session) (*Context, error) {
	user, err := r.users.FindUser(ctx, ev.SenderID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if session == nil {
		session = &models.Session{
			ChatID:   ev.ChatID,
			SenderID: ev.SenderID,
			Command:  def.Name,
			Data:     make(map[string]string),
		}
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = r.logger
	}

	return &Context{
		ctx:      ctx,
		registry: r,
		def:      def,
		event:    ev,
		user:     user,
		session:  session,
		logger:   logger,
		next:     noStep,
	}, nil
}

// run enters step idx and keeps going through prompt-less steps.
func (r *Registry) run(c *Context, idx int) error {
	for hops := 0; ; hops++ {
		if idx < 0 || idx >= len(c.def.Steps) {
			return r.finish(c)
		}
		if hops >= maxTransitions {
			return r.abandon(c, "loop", ErrStepLoop)
		}
		if c.def.Steps[idx].Prompt != nil {
			return r.prompt(c, idx)
		}

		next, done, err := r.call(c, idx)
		if err != nil {
			return err
		}
		if done {
			return r.finish(c)
		}
		idx = next
	}
}

// invoke runs the handler of step idx and follows where it leads.
func (r *Registry) invoke(c *Context, idx int) error {
	next, done, err := r.call(c, idx)
	if err != nil {
		return err
	}
	if done {
		return r.finish(c)
	}
	return r.run(c, next)
}

// call runs one handler with panic recovery. done is true when the flow ends.
func (r *Registry) call(c *Context, idx int) (next int, done bool, err error) {
	step := c.def.Steps[idx]
	c.next = noStep
	c.ended = false

	if step.OnValid != nil {
		if err := r.safeCall(c, step.OnValid); err != nil {
			return 0, true, err
		}
	}
	if c.ended || c.next == noStep {
		return 0, true, nil
	}
	return c.next, false, nil
}

func (r *Registry) safeCall(c *Context, h Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = r.recovered(c, "handler", rec)
		}
	}()

	if hErr := h(c); hErr != nil {
		c.logger.Error().Err(hErr).Str("command", c.def.Name).Msg("command handler failed")
		return r.abandon(c, "error", hErr)
	}
	return nil
}

// safeValidate runs the step's validator. A nil Validate accepts anything.
func (r *Registry) safeValidate(c *Context, step Step) (ok bool, err error) {
	if step.Validate == nil {
		return true, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			ok, err = false, r.recovered(c, "validator", rec)
		}
	}()
	return step.Validate(c.input), nil
}

func (r *Registry) buildPrompt(c *Context, p *Prompt) (text string, keyboard [][]string, err error) {
	if p.Build == nil {
		return p.Text, p.Keyboard, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			text, keyboard, err = "", nil, r.recovered(c, "prompt", rec)
		}
	}()
	if text, keyboard, err = p.Build(c); err != nil {
		return "", nil, r.abandon(c, "error", err)
	}
	return text, keyboard, nil
}

// recovered logs a panic raised by flow code and abandons the flow.
func (r *Registry) recovered(c *Context, where string, rec interface{}) error {
	c.logger.Error().
		Interface("panic", rec).
		Str("command", c.def.Name).
		Str("in", where).
		Str("stack", string(debug.Stack())).
		Msg("panic in command " + where)
	return r.abandon(c, "panic", fmt.Errorf("panic in %s: %v", where, rec))
}

func (r *Registry) prompt(c *Context, idx int) error {
	p := c.def.Steps[idx].Prompt
	text, keyboard, err := r.buildPrompt(c, p)
	if err != nil {
		return err
	}

	opts := []Option{WithParseMode(p.ParseMode)}
	if len(keyboard) > 0 {
		opts = append(opts, WithKeyboard(keyboard))
	}
	if err := c.Reply(text, opts...); err != nil {
		return r.abandon(c, "error", err)
	}

	c.session.Step = idx
	if err := r.sessions.SaveSession(c.ctx, c.session); err != nil {
		r.incError("session")
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Registry) finish(c *Context) error {
	r.count(c.def.Name, "ok")
	if err := r.sessions.ClearSession(c.ctx, c.event.SessionKey()); err != nil {
		r.incError("session")
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// abandon drops the flow after a failure and returns err wrapped in
// ErrHandlerFailed.
func (r *Registry) abandon(c *Context, reason string, err error) error {
	r.count(c.def.Name, reason)
	if r.metrics != nil {
		r.metrics.FlowsAbandoned.WithLabelValues(c.def.Name, reason).Inc()
	}
	if cErr := r.sessions.ClearSession(c.ctx, c.event.SessionKey()); cErr != nil {
		c.logger.Warn().Err(cErr).Msg("failed to clear abandoned session")
	}
	if errors.Is(err, ErrHandlerFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrHandlerFailed, c.def.Name, err)
}

func (r *Registry) count(command, outcome string) {
	if r.metrics != nil {
		r.metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

func (r *Registry) incError(component string) {
	if r.metrics != nil {
		r.metrics.IncError(component)
	}
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
