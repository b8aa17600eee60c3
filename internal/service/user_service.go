package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"blakkisvuohi/internal/database"
	"blakkisvuohi/internal/domain"
	"blakkisvuohi/internal/ebac"
	"blakkisvuohi/internal/events"
	"blakkisvuohi/internal/models"
	"blakkisvuohi/internal/security"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidGender = errors.New("invalid gender")
	ErrInvalidWeight = errors.New("weight must be positive")
	ErrLateTooFar    = fmt.Errorf("drinks can be logged at most %d hours back", models.MaxLateHours)
)

// UserService is the drink ledger as seen by chat flows. It takes raw Telegram
// ids, hashes them for storage and keeps nicknames encrypted at rest.
type UserService struct {
	ledger      domain.Ledger
	cipher      *security.Cipher
	events      domain.EventPublisher
	logger      *zerolog.Logger
	windowHours float64
	now         func() time.Time
}

func NewUserService(ledger domain.Ledger, cipher *security.Cipher, publisher domain.EventPublisher, windowHours int, logger *zerolog.Logger) *UserService {
	if windowHours <= 0 {
		windowHours = models.DefaultEBACWindowHours
	}
	return &UserService{
		ledger:      ledger,
		cipher:      cipher,
		events:      publisher,
		logger:      logger,
		windowHours: float64(windowHours),
		now:         time.Now,
	}
}

// NewUser registers a Telegram user. The returned user carries the plain nick.
func (s *UserService) NewUser(ctx context.Context, telegramID int64, nick string, weight int, gender string, height int, readTerms bool) (*models.User, error) {
	if err := validateProfile(weight, gender); err != nil {
		return nil, err
	}

	u := &models.User{
		UserID:    security.HashID(telegramID),
		Weight:    weight,
		Gender:    gender,
		Height:    height,
		ReadTerms: readTerms,
		Created:   s.now().UTC(),
	}

	enc, err := s.cipher.Encrypt(nick)
	if err != nil {
		return nil, fmt.Errorf("encrypt nick: %w", err)
	}
	stored := *u
	stored.Username = enc
	if err := s.ledger.CreateUser(ctx, &stored); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(events.EventUserRegistered, events.UserEventPayload{UserID: u.UserID, Gender: u.Gender})
	u.Username = nick
	return u, nil
}

// FindUser returns nil, nil when the id is not registered.
func (s *UserService) FindUser(ctx context.Context, telegramID int64) (*models.User, error) {
	u, err := s.ledger.GetUser(ctx, security.HashID(telegramID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if u.Username != "" {
		nick, err := s.cipher.Decrypt(u.Username)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.UserID).Msg("failed to decrypt nick")
			nick = ""
		}
		u.Username = nick
	}
	return u, nil
}

func (s *UserService) UpdateInfo(ctx context.Context, user *models.User, nick string, weight int, gender string, height int, readTerms bool) error {
	if err := validateProfile(weight, gender); err != nil {
		return err
	}

	enc, err := s.cipher.Encrypt(nick)
	if err != nil {
		return fmt.Errorf("encrypt nick: %w", err)
	}
	stored := *user
	stored.Username = enc
	stored.Weight = weight
	stored.Gender = gender
	stored.Height = height
	stored.ReadTerms = readTerms
	if err := s.ledger.UpdateUserInfo(ctx, &stored); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	user.Username = nick
	user.Weight = weight
	user.Gender = gender
	user.Height = height
	user.ReadTerms = readTerms
	s.publish(events.EventUserUpdated, events.UserEventPayload{UserID: user.UserID, Gender: gender})
	return nil
}

func (s *UserService) UpdateReadAnnouncements(ctx context.Context, user *models.User, n int) error {
	if err := s.ledger.UpdateReadAnnouncements(ctx, user.UserID, n); err != nil {
		return fmt.Errorf("update read announcements: %w", err)
	}
	user.ReadAnnouncements = n
	return nil
}

func (s *UserService) DrinkBooze(ctx context.Context, user *models.User, mg int, description string) (*models.Drink, error) {
	d, err := s.ledger.RecordDrink(ctx, user.UserID, mg, description, s.now())
	if err != nil {
		return nil, fmt.Errorf("drink booze: %w", err)
	}
	s.publish(events.EventDrinkRecorded, events.DrinkEventPayload{
		UserID: user.UserID, Count: 1, Milligrams: mg, Description: description, At: d.Created,
	})
	return d, nil
}

// DrinkBoozeReturnEBAC records the drink and returns the updated estimate.
func (s *UserService) DrinkBoozeReturnEBAC(ctx context.Context, user *models.User, mg int, description string) (models.EBAC, error) {
	if _, err := s.DrinkBooze(ctx, user, mg, description); err != nil {
		return models.EBAC{}, err
	}
	return s.GetEBAC(ctx, user)
}

// DrinkBoozeLate records drinks consumed hoursAgo in one transaction and
// returns the updated estimate.
func (s *UserService) DrinkBoozeLate(ctx context.Context, user *models.User, drinks []models.DrinkInput, hoursAgo float64) (models.EBAC, error) {
	if hoursAgo < 0 || hoursAgo > models.MaxLateHours {
		return models.EBAC{}, ErrLateTooFar
	}
	out, err := s.ledger.RecordDrinksBackdated(ctx, user.UserID, drinks, hoursAgo)
	if err != nil {
		return models.EBAC{}, fmt.Errorf("drink booze late: %w", err)
	}

	total := 0
	for _, d := range out {
		total += d.Alcohol
	}
	if len(out) > 0 {
		s.publish(events.EventDrinkRecorded, events.DrinkEventPayload{
			UserID: user.UserID, Count: len(out), Milligrams: total, Backdated: true, At: out[0].Created,
		})
	}
	return s.GetEBAC(ctx, user)
}

func (s *UserService) GetBooze(ctx context.Context, user *models.User) ([]models.Drink, error) {
	drinks, err := s.ledger.GetAllDrinks(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("get booze: %w", err)
	}
	return drinks, nil
}

func (s *UserService) GetBoozeForLastHours(ctx context.Context, user *models.User, hours float64) ([]models.Drink, error) {
	drinks, err := s.ledger.GetDrinksWithinHours(ctx, user.UserID, hours)
	if err != nil {
		return nil, fmt.Errorf("get booze for last hours: %w", err)
	}
	return drinks, nil
}

// GetDrinkSumForXHours returns milligrams consumed in the window.
func (s *UserService) GetDrinkSumForXHours(ctx context.Context, user *models.User, hours float64) (int, error) {
	sum, err := s.ledger.SumWithinHours(ctx, user.UserID, hours)
	if err != nil {
		return 0, fmt.Errorf("get drink sum: %w", err)
	}
	return sum, nil
}

// UndoDrink removes the latest drink. It reports false on an empty ledger.
func (s *UserService) UndoDrink(ctx context.Context, user *models.User) (bool, error) {
	removed, err := s.ledger.UndoLastDrink(ctx, user.UserID)
	if err != nil {
		return false, fmt.Errorf("undo drink: %w", err)
	}
	if removed {
		s.publish(events.EventDrinkUndone, events.DrinkEventPayload{UserID: user.UserID, Count: 1, At: s.now()})
	}
	return removed, nil
}

func (s *UserService) GetLastNUniqueDrinks(ctx context.Context, user *models.User, n int, exclude string) ([]models.Drink, error) {
	drinks, err := s.ledger.LastNUniqueDescriptions(ctx, user.UserID, n, exclude)
	if err != nil {
		return nil, fmt.Errorf("get last unique drinks: %w", err)
	}
	return drinks, nil
}

// GetEBAC estimates the current blood alcohol from drinks inside the window.
func (s *UserService) GetEBAC(ctx context.Context, user *models.User) (models.EBAC, error) {
	drinks, err := s.ledger.GetDrinksWithinHours(ctx, user.UserID, s.windowHours)
	if err != nil {
		return models.EBAC{}, fmt.Errorf("get ebac: %w", err)
	}
	return ebac.Calculate(ebac.ProfileOf(user), drinks, s.now()), nil
}

func (s *UserService) JoinGroup(ctx context.Context, groupID int64, user *models.User) error {
	gid := security.HashID(groupID)
	if err := s.ledger.JoinGroup(ctx, gid, user.UserID); err != nil {
		return fmt.Errorf("join group: %w", err)
	}
	s.publish(events.EventGroupJoined, events.GroupEventPayload{GroupID: gid, UserID: user.UserID})
	return nil
}

func (s *UserService) LeaveGroup(ctx context.Context, groupID int64, user *models.User) error {
	gid := security.HashID(groupID)
	if err := s.ledger.LeaveGroup(ctx, gid, user.UserID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	s.publish(events.EventGroupLeft, events.GroupEventPayload{GroupID: gid, UserID: user.UserID})
	return nil
}

// GroupMembers returns hashed ids of the group's members.
func (s *UserService) GroupMembers(ctx context.Context, groupID int64) ([]string, error) {
	ids, err := s.ledger.GroupMembers(ctx, security.HashID(groupID))
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	return ids, nil
}

func (s *UserService) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}

func validateProfile(weight int, gender string) error {
	if weight <= 0 {
		return ErrInvalidWeight
	}
	if !models.ValidGender(gender) {
		return ErrInvalidGender
	}
	return nil
}

// MemberStatus is one row of a group's drinking status.
type MemberStatus struct {
	Nick string
	EBAC models.EBAC
}

// GroupStatus returns the current estimate of every member, highest first.
func (s *UserService) GroupStatus(ctx context.Context, groupID int64) ([]MemberStatus, error) {
	ids, err := s.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]MemberStatus, 0, len(ids))
	for _, id := range ids {
		u, err := s.ledger.GetUser(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("group status: %w", err)
		}
		nick, err := s.cipher.Decrypt(u.Username)
		if err != nil {
			nick = "?"
		}
		u.Username = nick
		e, err := s.GetEBAC(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, MemberStatus{Nick: nick, EBAC: e})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EBAC.Permilles > out[j].EBAC.Permilles
	})
	return out, nil
}
