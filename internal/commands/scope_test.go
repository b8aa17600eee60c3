package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Allows(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		private bool
		known   bool
		want    bool
	}{
		{"all anonymous group", ScopeAll, false, false, true},
		{"user unknown", ScopeUser, true, false, false},
		{"user known", ScopeUser, false, true, true},
		{"private in group", ScopePrivate, false, true, false},
		{"private in private", ScopePrivate, true, false, true},
		{"group in private", ScopeGroup, true, true, false},
		{"group in group", ScopeGroup, false, false, true},
		{"user private known in private", ScopeUser | ScopePrivate, true, true, true},
		{"user private unknown in private", ScopeUser | ScopePrivate, true, false, false},
		{"user private known in group", ScopeUser | ScopePrivate, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Allows(tt.private, tt.known))
		})
	}
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "all", ScopeAll.String())
	assert.Equal(t, "user|private", (ScopeUser | ScopePrivate).String())
	assert.Equal(t, "group", ScopeGroup.String())
}

func TestParseCommand(t *testing.T) {
	name, bot, args, ok := parseCommand("/Kalja033@BlakkisBot 2")
	assert.True(t, ok)
	assert.Equal(t, "/kalja033", name)
	assert.Equal(t, "BlakkisBot", bot)
	assert.Equal(t, []string{"2"}, args)

	_, _, _, ok = parseCommand("hello /start")
	assert.False(t, ok)
	_, _, _, ok = parseCommand("/")
	assert.False(t, ok)
	_, _, _, ok = parseCommand("   ")
	assert.False(t, ok)
}
