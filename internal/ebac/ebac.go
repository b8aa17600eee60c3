// Package ebac estimates blood alcohol concentration with a Widmark style model.
package ebac

import (
	"math"
	"time"

	"blakkisvuohi/internal/models"
)

const (
	// Widmark distribution ratios.
	RatioMale   = 0.68
	RatioFemale = 0.55

	// EliminationRate in permilles per hour.
	EliminationRate = 0.15

	lookBack = 30 * time.Minute
)

// Profile is the part of a user the model needs. Height is carried for
// completeness but does not affect the fixed ratios.
type Profile struct {
	Weight int
	Gender string
	Height int
}

func ProfileOf(u *models.User) Profile {
	return Profile{Weight: u.Weight, Gender: u.Gender, Height: u.Height}
}

func Ratio(gender string) float64 {
	if gender == models.GenderFemale {
		return RatioFemale
	}
	return RatioMale
}

// Calculate returns the eBAC at now and 30 minutes before now. Each drink decays
// on its own and is floored at zero before summing.
func Calculate(p Profile, drinks []models.Drink, now time.Time) models.EBAC {
	var res models.EBAC
	if len(drinks) == 0 || p.Weight <= 0 {
		return res
	}

	distribution := float64(p.Weight) * Ratio(p.Gender)
	for _, d := range drinks {
		grams := d.Grams()
		res.Grams += grams

		base := grams / distribution
		elapsed := now.Sub(d.Created).Hours()
		res.Permilles += contribution(base, elapsed)
		res.Permilles30Min += contribution(base, elapsed-lookBack.Hours())
	}
	return res
}

func contribution(base, elapsedHours float64) float64 {
	if elapsedHours < 0 {
		elapsedHours = 0
	}
	return math.Max(0, base-EliminationRate*elapsedHours)
}

// AlcoholMilligrams converts a serving (litres, alcohol by volume as a fraction)
// to milligrams of ethanol.
func AlcoholMilligrams(litres, abv float64) int {
	const ethanolDensity = 789.0 // g/l
	return int(math.Round(litres * abv * ethanolDensity * 1000))
}

// BurnOffHours is how long until the given permilles reach zero.
func BurnOffHours(permilles float64) float64 {
	if permilles <= 0 {
		return 0
	}
	return permilles / EliminationRate
}
