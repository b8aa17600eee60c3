package flows

import (
	"fmt"
	"strconv"
	"strings"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/ebac"
	"blakkisvuohi/internal/models"
)

// preset is a fixed drink logged with a single command.
type preset struct {
	name   string
	help   string
	litres float64
	abv    float64
}

var presets = []preset{
	{"/kalja033", "olut 0,33 l 4,7 %", 0.33, 0.047},
	{"/kalja05", "olut 0,5 l 4,7 %", 0.5, 0.047},
	{"/siideri033", "siideri 0,33 l 4,7 %", 0.33, 0.047},
	{"/viini12", "viini 12 cl 12,5 %", 0.12, 0.125},
	{"/viina4", "viina 4 cl 40 %", 0.04, 0.40},
}

func (f *flows) registerDrinks() {
	for _, p := range presets {
		mg := ebac.AlcoholMilligrams(p.litres, p.abv)
		description := p.name
		f.registry.RegisterUserCommand(p.name, p.help, commands.ScopeAll, one(func(c *commands.Context) error {
			return f.drink(c, mg, description)
		}))
	}

	f.registry.RegisterUserCommand("/juoma", "kirjaa oma juoma", commands.ScopeAll,
		commands.Step{
			Prompt:   &commands.Prompt{Text: "Mikä juoma?"},
			Validate: func(s string) bool { return s != "" && !strings.HasPrefix(s, "/") && len(s) <= 64 },
			OnValid: func(c *commands.Context) error {
				if cancelled(c) {
					return nil
				}
				c.Set("name", c.Input())
				c.Next(1)
				return nil
			},
		},
		commands.Step{
			Prompt:   &commands.Prompt{Text: "Kuinka paljon litroina? (esim. 0,33)"},
			Validate: numberBetween(0.001, 5),
			OnValid:  storeFloat("litres", 2),
		},
		commands.Step{
			Prompt:   &commands.Prompt{Text: "Kuinka monta prosenttia alkoholia? (esim. 4,7)"},
			Validate: numberBetween(0.1, 100),
			OnValid: func(c *commands.Context) error {
				if cancelled(c) {
					return nil
				}
				abv, _ := parseNumber(c.Input())
				mg := ebac.AlcoholMilligrams(c.GetFloat("litres"), abv/100)
				return f.drink(c, mg, c.Get("name"))
			},
		},
	)

	f.registry.RegisterUserCommand("/uudestaan", "juo sama uudestaan", commands.ScopeAll,
		one(f.requireHistory(1)),
		commands.Step{
			Prompt:  &commands.Prompt{Build: f.recentKeyboard("Mitä juot?")},
			OnValid: f.repeatDrink,
		},
	)

	f.registry.RegisterUserCommand("/late", "kirjaa unohtunut juoma", commands.ScopeAll,
		one(f.requireHistory(1)),
		commands.Step{
			Prompt:   &commands.Prompt{Text: fmt.Sprintf("Montako tuntia sitten? (0-%d)", models.MaxLateHours)},
			Validate: numberBetween(0, models.MaxLateHours),
			OnValid:  storeFloat("hours", 2),
		},
		commands.Step{
			Prompt:  &commands.Prompt{Build: f.recentKeyboard("Mitä joit?")},
			OnValid: f.lateDrink,
		},
	)

	f.registry.RegisterUserCommand("/undo", "poista viimeisin juoma", commands.ScopeAll, one(f.undo))
}

func storeFloat(key string, next int) commands.Handler {
	return func(c *commands.Context) error {
		if cancelled(c) {
			return nil
		}
		v, _ := parseNumber(c.Input())
		c.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		c.Next(next)
		return nil
	}
}

// drink records one drink and replies with the new estimate. Drinking in a
// group chat makes the drinker a member of that group.
func (f *flows) drink(c *commands.Context, mg int, description string) error {
	u := c.User()
	if !c.IsPrivate() {
		if err := f.users.JoinGroup(c.Context(), c.ChatID(), u); err != nil {
			c.Logger().Warn().Err(err).Msg("failed to join group")
		}
	}

	e, err := f.users.DrinkBoozeReturnEBAC(c.Context(), u, mg, description)
	if err != nil {
		return apologize(c, err)
	}
	return c.Reply(fmt.Sprintf("%s kirjattu (%s). Arvio: %s", description, formatGrams(mg), formatEBAC(e)),
		commands.WithRemoveKeyboard())
}

// requireHistory continues to step next only when the user has drinks to pick from.
func (f *flows) requireHistory(next int) commands.Handler {
	return func(c *commands.Context) error {
		recent, err := f.users.GetLastNUniqueDrinks(c.Context(), c.User(), f.opts.RecentDrinks, "")
		if err != nil {
			return apologize(c, err)
		}
		if len(recent) == 0 {
			return c.Reply("Et ole vielä juonut mitään. Kirjaa juoma esimerkiksi komennolla /kalja033 tai /juoma.")
		}
		c.Next(next)
		return nil
	}
}

func (f *flows) recentKeyboard(text string) func(c *commands.Context) (string, [][]string, error) {
	return func(c *commands.Context) (string, [][]string, error) {
		recent, err := f.users.GetLastNUniqueDrinks(c.Context(), c.User(), f.opts.RecentDrinks, "")
		if err != nil {
			return "", nil, err
		}
		rows := make([][]string, 0, len(recent)+1)
		seen := make(map[string]bool, len(recent))
		for _, d := range recent {
			label := drinkLabel(d.Description)
			if seen[label] {
				continue
			}
			seen[label] = true
			rows = append(rows, []string{label})
		}
		rows = append(rows, []string{msgCancel})
		return text, rows, nil
	}
}

// pickRecent finds the recent drink the user chose from the keyboard.
func (f *flows) pickRecent(c *commands.Context) (*models.Drink, error) {
	recent, err := f.users.GetLastNUniqueDrinks(c.Context(), c.User(), f.opts.RecentDrinks, "")
	if err != nil {
		return nil, err
	}
	for i := range recent {
		if drinkLabel(recent[i].Description) == drinkLabel(c.Input()) {
			return &recent[i], nil
		}
	}
	return nil, nil
}

// drinkLabel is the keyboard text for a recorded drink. Preset drinks are
// stored under their command name and a button starting with a slash would
// be sent back as that command.
func drinkLabel(description string) string {
	return strings.TrimPrefix(description, "/")
}

func (f *flows) repeatDrink(c *commands.Context) error {
	if cancelled(c) {
		return nil
	}
	d, err := f.pickRecent(c)
	if err != nil {
		return apologize(c, err)
	}
	if d == nil {
		return c.Reply("En löytänyt juomaa "+c.Input()+".", commands.WithRemoveKeyboard())
	}
	return f.drink(c, d.Alcohol, d.Description)
}

func (f *flows) lateDrink(c *commands.Context) error {
	if cancelled(c) {
		return nil
	}
	d, err := f.pickRecent(c)
	if err != nil {
		return apologize(c, err)
	}
	if d == nil {
		return c.Reply("En löytänyt juomaa "+c.Input()+".", commands.WithRemoveKeyboard())
	}

	hours := c.GetFloat("hours")
	e, err := f.users.DrinkBoozeLate(c.Context(), c.User(),
		[]models.DrinkInput{{Milligrams: d.Alcohol, Description: d.Description}}, hours)
	if err != nil {
		return apologize(c, err)
	}
	return c.Reply(fmt.Sprintf("%s kirjattu %s tuntia sitten. Arvio: %s",
		d.Description, strconv.FormatFloat(hours, 'f', -1, 64), formatEBAC(e)), commands.WithRemoveKeyboard())
}

func (f *flows) undo(c *commands.Context) error {
	removed, err := f.users.UndoDrink(c.Context(), c.User())
	if err != nil {
		return apologize(c, err)
	}
	if !removed {
		return c.Reply("Ei poistettavia juomia.")
	}

	e, err := f.users.GetEBAC(c.Context(), c.User())
	if err != nil {
		return apologize(c, err)
	}
	return c.Reply("Viimeisin juoma poistettu. Arvio: " + formatEBAC(e))
}
