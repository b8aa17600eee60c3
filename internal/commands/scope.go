package commands

import "strings"

// Scope restricts who may run a command. Flags combine; every set flag must be
// satisfied.
type Scope uint8

const ScopeAll Scope = 0

const (
	// ScopeUser requires a registered sender.
	ScopeUser Scope = 1 << iota
	// ScopePrivate requires a one-to-one chat with the bot.
	ScopePrivate
	// ScopeGroup requires a group or supergroup chat.
	ScopeGroup
)

func (s Scope) Has(flag Scope) bool {
	return s&flag == flag
}

// Allows reports whether a caller in the given situation passes the scope.
func (s Scope) Allows(private, knownUser bool) bool {
	if s.Has(ScopeUser) && !knownUser {
		return false
	}
	if s.Has(ScopePrivate) && !private {
		return false
	}
	if s.Has(ScopeGroup) && private {
		return false
	}
	return true
}

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	var parts []string
	if s.Has(ScopeUser) {
		parts = append(parts, "user")
	}
	if s.Has(ScopePrivate) {
		parts = append(parts, "private")
	}
	if s.Has(ScopeGroup) {
		parts = append(parts, "group")
	}
	return strings.Join(parts, "|")
}
