package flows

import (
	"strings"

	"blakkisvuohi/internal/commands"
)

func (f *flows) registerInfo() {
	f.registry.Register("/start", "aloita", commands.ScopeAll, one(f.start))
	f.registry.Register("/help", "näytä komennot", commands.ScopeAll, one(f.help))
}

func (f *flows) start(c *commands.Context) error {
	switch {
	case c.IsKnownUser():
		return c.Reply("Tervetuloa takaisin! Komennot näet komennolla /help.")
	case c.IsPrivate():
		return c.Reply("Hei! Olen Bläkkisvuohi ja arvioin veren alkoholipitoisuuttasi. Aloita rekisteröitymällä: /register")
	default:
		return c.Reply("Hei! Rekisteröidy yksityisviestillä, niin voit kirjata juomia myös tässä ryhmässä.")
	}
}

func (f *flows) help(c *commands.Context) error {
	lines := f.registry.Help(c.IsPrivate(), c.IsKnownUser())
	return c.Reply("Komennot:\n" + strings.Join(lines, "\n"))
}
