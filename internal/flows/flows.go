// Package flows holds the bot's built-in chat commands.
package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/models"
	"blakkisvuohi/internal/service"

	"github.com/rs/zerolog"
)

// Users is the part of the user service the flows need.
type Users interface {
	NewUser(ctx context.Context, telegramID int64, nick string, weight int, gender string, height int, readTerms bool) (*models.User, error)
	UpdateInfo(ctx context.Context, user *models.User, nick string, weight int, gender string, height int, readTerms bool) error
	DrinkBoozeReturnEBAC(ctx context.Context, user *models.User, mg int, description string) (models.EBAC, error)
	DrinkBoozeLate(ctx context.Context, user *models.User, drinks []models.DrinkInput, hoursAgo float64) (models.EBAC, error)
	GetBooze(ctx context.Context, user *models.User) ([]models.Drink, error)
	GetDrinkSumForXHours(ctx context.Context, user *models.User, hours float64) (int, error)
	UndoDrink(ctx context.Context, user *models.User) (bool, error)
	GetLastNUniqueDrinks(ctx context.Context, user *models.User, n int, exclude string) ([]models.Drink, error)
	GetEBAC(ctx context.Context, user *models.User) (models.EBAC, error)
	JoinGroup(ctx context.Context, groupID int64, user *models.User) error
	LeaveGroup(ctx context.Context, groupID int64, user *models.User) error
	GroupStatus(ctx context.Context, groupID int64) ([]service.MemberStatus, error)
}

type Options struct {
	// RecentDrinks is how many distinct recent drinks /uudestaan offers.
	RecentDrinks int
	// Location is used when showing timestamps.
	Location *time.Location
}

type flows struct {
	registry *commands.Registry
	users    Users
	opts     Options
	logger   *zerolog.Logger
}

// Register installs every built-in command on the registry.
func Register(registry *commands.Registry, users Users, opts Options, logger *zerolog.Logger) {
	if opts.RecentDrinks <= 0 {
		opts.RecentDrinks = models.DefaultUniqueDrinks
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	f := &flows{registry: registry, users: users, opts: opts, logger: logger}

	f.registerInfo()
	f.registerProfile()
	f.registerDrinks()
	f.registerStatus()
}

const (
	msgStorageError = "Tallennus epäonnistui, yritä hetken päästä uudelleen."
	msgCancel       = "peru"
)

// one wraps a single handler into a prompt-less step.
func one(h commands.Handler) commands.Step {
	return commands.Step{OnValid: h}
}

// apologize tells the user something went wrong and hands err back to the
// dispatcher, which logs it and drops the flow.
func apologize(c *commands.Context, err error) error {
	_ = c.Reply(msgStorageError, commands.WithRemoveKeyboard())
	return err
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func numberBetween(min, max float64) func(string) bool {
	return func(s string) bool {
		if strings.EqualFold(strings.TrimSpace(s), msgCancel) {
			return true
		}
		v, ok := parseNumber(s)
		return ok && v >= min && v <= max
	}
}

func cancelled(c *commands.Context) bool {
	if strings.EqualFold(c.Input(), msgCancel) {
		c.End()
		_ = c.Reply("Peruttu.", commands.WithRemoveKeyboard())
		return true
	}
	return false
}

func formatEBAC(e models.EBAC) string {
	return fmt.Sprintf("%.2f‰ (30 min sitten %.2f‰)", e.Permilles, e.Permilles30Min)
}

func formatGrams(mg int) string {
	return fmt.Sprintf("%.1f g", float64(mg)/1000)
}
