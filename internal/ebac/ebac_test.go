package ebac

import (
	"testing"
	"time"

	"blakkisvuohi/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCalculate_NoDrinks(t *testing.T) {
	res := Calculate(Profile{Weight: 80, Gender: models.GenderMale}, nil, time.Now())
	assert.Equal(t, models.EBAC{}, res)
}

func TestCalculate_ZeroWeight(t *testing.T) {
	now := time.Now()
	drinks := []models.Drink{{Alcohol: 12347, Created: now}}
	assert.Equal(t, models.EBAC{}, Calculate(Profile{}, drinks, now))
}

func TestCalculate_FreshDrink(t *testing.T) {
	now := time.Now()
	p := Profile{Weight: 80, Gender: models.GenderMale}
	res := Calculate(p, []models.Drink{{Alcohol: 12347, Created: now}}, now)

	base := 12.347 / (80 * RatioMale)
	assert.InDelta(t, base, res.Permilles, 1e-9)
	assert.InDelta(t, base, res.Permilles30Min, 1e-9)
	assert.InDelta(t, 12.347, res.Grams, 1e-9)
}

func TestCalculate_Decay(t *testing.T) {
	now := time.Now()
	p := Profile{Weight: 80, Gender: models.GenderFemale}
	drinks := []models.Drink{{Alcohol: 24000, Created: now.Add(-time.Hour)}}
	res := Calculate(p, drinks, now)

	base := 24.0 / (80 * RatioFemale)
	assert.InDelta(t, base-EliminationRate, res.Permilles, 1e-9)
	assert.InDelta(t, base-EliminationRate*0.5, res.Permilles30Min, 1e-9)
	assert.Greater(t, res.Permilles30Min, res.Permilles)
}

func TestCalculate_PerDrinkFloor(t *testing.T) {
	now := time.Now()
	p := Profile{Weight: 80, Gender: models.GenderMale}
	old := models.Drink{Alcohol: 12347, Created: now.Add(-10 * time.Hour)}
	fresh := models.Drink{Alcohol: 12347, Created: now}

	onlyFresh := Calculate(p, []models.Drink{fresh}, now)
	both := Calculate(p, []models.Drink{old, fresh}, now)

	// the old drink is fully burnt and must not pull the fresh one down
	assert.InDelta(t, onlyFresh.Permilles, both.Permilles, 1e-9)
	assert.InDelta(t, 2*12.347, both.Grams, 1e-9)
}

func TestCalculate_NeverNegative(t *testing.T) {
	now := time.Now()
	p := Profile{Weight: 60, Gender: models.GenderFemale}
	for h := 0; h < 72; h += 3 {
		drinks := []models.Drink{
			{Alcohol: 5000, Created: now.Add(-time.Duration(h) * time.Hour)},
			{Alcohol: 0, Created: now.Add(-time.Duration(h) * time.Minute)},
		}
		res := Calculate(p, drinks, now)
		assert.GreaterOrEqual(t, res.Permilles, 0.0)
		assert.GreaterOrEqual(t, res.Permilles30Min, 0.0)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, RatioMale, Ratio(models.GenderMale))
	assert.Equal(t, RatioFemale, Ratio(models.GenderFemale))
	assert.Equal(t, RatioMale, Ratio(""))
}

func TestAlcoholMilligrams(t *testing.T) {
	assert.Equal(t, 12237, AlcoholMilligrams(0.33, 0.047))
	assert.Equal(t, 0, AlcoholMilligrams(0.5, 0))
}

func TestBurnOffHours(t *testing.T) {
	assert.Equal(t, 0.0, BurnOffHours(-1))
	assert.InDelta(t, 2.0, BurnOffHours(0.3), 1e-9)
}
