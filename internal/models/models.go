package models

import (
	"strconv"
	"time"
)

// Session is the persisted state of a multi-step command flow for one
// (chat, sender) pair.
type Session struct {
	ChatID       int64             `json:"chat_id"`
	SenderID     int64             `json:"sender_id"`
	Command      string            `json:"command"`
	Step         int               `json:"step"`
	Data         map[string]string `json:"data,omitempty"`
	BotMessageID int               `json:"bot_message_id,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SessionKey identifies a pending flow.
type SessionKey struct {
	ChatID   int64
	SenderID int64
}

func (k SessionKey) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.SenderID, 10)
}

func (s *Session) Key() SessionKey {
	return SessionKey{ChatID: s.ChatID, SenderID: s.SenderID}
}

func (s *Session) GetString(key string) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[key]
}

func (s *Session) GetInt(key string) int {
	v, err := strconv.Atoi(s.GetString(key))
	if err != nil {
		return 0
	}
	return v
}

func (s *Session) GetFloat(key string) float64 {
	v, err := strconv.ParseFloat(s.GetString(key), 64)
	if err != nil {
		return 0
	}
	return v
}
