package flows

import (
	"fmt"
	"strconv"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/models"
)

const (
	termsText = "Bläkkisvuohi tallentaa juomasi sekä painosi, pituutesi ja sukupuolesi arvion laskemista varten. " +
		"Tunnisteesi tallennetaan tiivisteenä ja nimimerkkisi salattuna. Arvio on suuntaa antava, älä käytä sitä ajokuntoisuuden arviointiin."
	acceptTerms = "Hyväksyn"
	rejectTerms = "En hyväksy"
)

var (
	weightPrompt = &commands.Prompt{Text: "Paljonko painat? (kg)"}
	genderPrompt = &commands.Prompt{
		Text:     "Mikä on sukupuolesi?",
		Keyboard: [][]string{{models.GenderMale, models.GenderFemale}},
	}
	heightPrompt = &commands.Prompt{Text: "Kuinka pitkä olet? (cm)"}

	validWeight = numberBetween(20, 400)
	validHeight = numberBetween(100, 260)
)

func validGender(s string) bool {
	return models.ValidGender(s) || s == msgCancel
}

func (f *flows) registerProfile() {
	f.registry.Register("/register", "rekisteröidy", commands.ScopePrivate,
		one(func(c *commands.Context) error {
			if c.IsKnownUser() {
				return c.Reply("Olet jo rekisteröitynyt. Tietoja voit päivittää komennolla /updateinfo.")
			}
			c.Next(1)
			return nil
		}),
		commands.Step{
			Prompt: &commands.Prompt{
				Text:     termsText,
				Keyboard: [][]string{{acceptTerms}, {rejectTerms}},
			},
			Validate: func(s string) bool { return s == acceptTerms || s == rejectTerms },
			OnValid: func(c *commands.Context) error {
				if c.Input() == rejectTerms {
					return c.Reply("Selvä, et voi käyttää bottia ilman ehtojen hyväksymistä.", commands.WithRemoveKeyboard())
				}
				c.Next(2)
				return nil
			},
		},
		commands.Step{Prompt: weightPrompt, Validate: validWeight, OnValid: storeAnswer("weight", 3)},
		commands.Step{Prompt: genderPrompt, Validate: validGender, OnValid: storeAnswer("gender", 4)},
		commands.Step{Prompt: heightPrompt, Validate: validHeight, OnValid: f.finishRegistration},
	)

	f.registry.RegisterUserCommand("/updateinfo", "päivitä tietosi", commands.ScopePrivate,
		one(func(c *commands.Context) error {
			c.Next(1)
			return nil
		}),
		commands.Step{Prompt: weightPrompt, Validate: validWeight, OnValid: storeAnswer("weight", 2)},
		commands.Step{Prompt: genderPrompt, Validate: validGender, OnValid: storeAnswer("gender", 3)},
		commands.Step{Prompt: heightPrompt, Validate: validHeight, OnValid: f.finishUpdate},
	)
}

// storeAnswer saves the input under key and moves to step next.
func storeAnswer(key string, next int) commands.Handler {
	return func(c *commands.Context) error {
		if cancelled(c) {
			return nil
		}
		if v, ok := parseNumber(c.Input()); ok {
			c.Set(key, strconv.Itoa(int(v+0.5)))
		} else {
			c.Set(key, c.Input())
		}
		c.Next(next)
		return nil
	}
}

func (f *flows) finishRegistration(c *commands.Context) error {
	if cancelled(c) {
		return nil
	}
	height, _ := parseNumber(c.Input())

	u, err := f.users.NewUser(c.Context(), c.SenderID(), c.SenderUsername(),
		c.GetInt("weight"), c.Get("gender"), int(height+0.5), true)
	if err != nil {
		return apologize(c, err)
	}
	c.SetUser(u)

	return c.Reply(fmt.Sprintf("Rekisteröity! Paino %d kg, pituus %d cm. Kirjaa juoma esimerkiksi komennolla /kalja033.",
		u.Weight, u.Height), commands.WithRemoveKeyboard())
}

func (f *flows) finishUpdate(c *commands.Context) error {
	if cancelled(c) {
		return nil
	}
	height, _ := parseNumber(c.Input())
	u := c.User()

	nick := u.Username
	if c.SenderUsername() != "" {
		nick = c.SenderUsername()
	}
	if err := f.users.UpdateInfo(c.Context(), u, nick, c.GetInt("weight"), c.Get("gender"), int(height+0.5), u.ReadTerms); err != nil {
		return apologize(c, err)
	}
	return c.Reply("Tiedot päivitetty.", commands.WithRemoveKeyboard())
}
