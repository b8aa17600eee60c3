package domain

import (
	"context"
	"io"
	"time"

	"blakkisvuohi/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Ledger is the persistence surface of users, drinks and group memberships.
// Ids passed in are already hashed.
type Ledger interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUserInfo(ctx context.Context, u *models.User) error
	UpdateReadAnnouncements(ctx context.Context, userID string, n int) error

	RecordDrink(ctx context.Context, userID string, mg int, description string, created time.Time) (*models.Drink, error)
	RecordDrinksBackdated(ctx context.Context, userID string, drinks []models.DrinkInput, hoursAgo float64) ([]models.Drink, error)
	UndoLastDrink(ctx context.Context, userID string) (bool, error)
	GetAllDrinks(ctx context.Context, userID string) ([]models.Drink, error)
	GetDrinksWithinHours(ctx context.Context, userID string, hours float64) ([]models.Drink, error)
	SumWithinHours(ctx context.Context, userID string, hours float64) (int, error)
	LastNUniqueDescriptions(ctx context.Context, userID string, n int, exclude string) ([]models.Drink, error)

	JoinGroup(ctx context.Context, groupID, userID string) error
	LeaveGroup(ctx context.Context, groupID, userID string) error
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
}

type StateRepository interface {
	GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, key models.SessionKey) error
	CheckRateLimit(ctx context.Context, senderID int64, limit int, window time.Duration) (bool, error)
}

type StateManager interface {
	GetSession(ctx context.Context, key models.SessionKey) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, key models.SessionKey) error
	CheckRateLimit(ctx context.Context, senderID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// MessageOptions tune an outbound message. Keyboard rows become a one-time reply
// keyboard.
type MessageOptions struct {
	ParseMode      string
	Keyboard       [][]string
	RemoveKeyboard bool
}

// Transport delivers bot output to a chat. Send methods return the id of the
// message they created.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts MessageOptions) (int, error)
	SendPhoto(ctx context.Context, chatID int64, name string, r io.Reader, opts MessageOptions) (int, error)
	SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, opts MessageOptions) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts MessageOptions) error
}
