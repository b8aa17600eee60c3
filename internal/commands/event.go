package commands

import (
	"strings"

	"blakkisvuohi/internal/models"
)

// Event is an inbound chat message, independent of the transport.
type Event struct {
	ChatID         int64
	ChatType       string
	SenderID       int64
	SenderUsername string
	Text           string
	MessageID      int
}

func (e Event) IsPrivate() bool {
	return e.ChatType == models.ChatTypePrivate
}

func (e Event) SessionKey() models.SessionKey {
	return models.SessionKey{ChatID: e.ChatID, SenderID: e.SenderID}
}

// parseCommand splits "/name@bot arg1 arg2" into the lower-cased name, the bot
// suffix and the arguments. ok is false when text is not a command.
func parseCommand(text string) (name, bot string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) < 2 {
		return "", "", nil, false
	}

	name = fields[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		bot = name[at+1:]
		name = name[:at]
	}
	return strings.ToLower(name), bot, fields[1:], true
}
