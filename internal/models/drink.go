package models

import "time"

// Drink is one row of a user's drink ledger.
type Drink struct {
	UserID      string    `json:"userid"`
	Alcohol     int       `json:"alcohol"` // milligrams
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}

// Grams returns the alcohol amount in grams.
func (d Drink) Grams() float64 {
	return float64(d.Alcohol) / 1000
}

// DrinkInput describes a drink that has not been stored yet.
type DrinkInput struct {
	Milligrams  int    `json:"mg"`
	Description string `json:"text"`
}

// EBAC is an estimated blood alcohol concentration snapshot.
type EBAC struct {
	Permilles      float64 `json:"permilles"`
	Permilles30Min float64 `json:"permilles_30min"`
	Grams          float64 `json:"grams"`
}

// GroupMember links a hashed group id to a hashed user id.
type GroupMember struct {
	GroupID string `json:"groupid"`
	UserID  string `json:"userid"`
}
