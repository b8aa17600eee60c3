package models

import "time"

const (
	GenderMale   = "mies"
	GenderFemale = "nainen"
)

// User is a registered drinker. UserID holds the hashed Telegram id, Username the
// plain nickname (it is encrypted only at rest).
type User struct {
	UserID            string    `json:"userid"`
	Username          string    `json:"nick"`
	Weight            int       `json:"weight"`
	Gender            string    `json:"gender"`
	Height            int       `json:"height"`
	ReadTerms         bool      `json:"read_terms"`
	ReadAnnouncements int       `json:"read_announcements"`
	Created           time.Time `json:"created"`
}

// ValidGender reports whether g is one of the supported gender categories.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}
