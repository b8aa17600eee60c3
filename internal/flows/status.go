package flows

import (
	"fmt"
	"strings"
	"time"

	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/ebac"
	"blakkisvuohi/internal/models"
	"blakkisvuohi/internal/service"
)

func (f *flows) registerStatus() {
	f.registry.RegisterUserCommand("/status", "näytä promillet", commands.ScopeAll, one(f.status))
	f.registry.RegisterUserCommand("/export", "lataa juomahistoria", commands.ScopePrivate, one(f.export))
	f.registry.RegisterUserCommand("/liity", "liity ryhmän tilastoihin", commands.ScopeGroup, one(f.join))
	f.registry.RegisterUserCommand("/poistu", "poistu ryhmän tilastoista", commands.ScopeGroup, one(f.leave))
	f.registry.Register("/kaikki", "ryhmän promillet", commands.ScopeGroup, one(f.groupStatus))
}

func (f *flows) status(c *commands.Context) error {
	e, err := f.users.GetEBAC(c.Context(), c.User())
	if err != nil {
		return apologize(c, err)
	}
	sum, err := f.users.GetDrinkSumForXHours(c.Context(), c.User(), models.DefaultSumWindowHours)
	if err != nil {
		return apologize(c, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Arvio: %s\n", formatEBAC(e))
	fmt.Fprintf(&b, "Alkoholia %d tunnin aikana: %s\n", models.DefaultSumWindowHours, formatGrams(sum))
	if h := ebac.BurnOffHours(e.Permilles); h > 0 {
		fmt.Fprintf(&b, "Selvinpäin noin %.1f tunnin päästä.", h)
	} else {
		b.WriteString("Olet selvinpäin.")
	}
	return c.Reply(b.String())
}

func (f *flows) export(c *commands.Context) error {
	drinks, err := f.users.GetBooze(c.Context(), c.User())
	if err != nil {
		return apologize(c, err)
	}
	if len(drinks) == 0 {
		return c.Reply("Ei vietäviä juomia.")
	}

	buf, err := service.ExportDrinks(drinks, f.opts.Location)
	if err != nil {
		return apologize(c, err)
	}
	return c.ReplyWithDocument(service.ExportFileName(time.Now().In(f.opts.Location)), buf)
}

func (f *flows) join(c *commands.Context) error {
	if err := f.users.JoinGroup(c.Context(), c.ChatID(), c.User()); err != nil {
		return apologize(c, err)
	}
	return c.Reply("Liityit ryhmän tilastoihin.")
}

func (f *flows) leave(c *commands.Context) error {
	if err := f.users.LeaveGroup(c.Context(), c.ChatID(), c.User()); err != nil {
		return apologize(c, err)
	}
	return c.Reply("Poistuit ryhmän tilastoista.")
}

func (f *flows) groupStatus(c *commands.Context) error {
	members, err := f.users.GroupStatus(c.Context(), c.ChatID())
	if err != nil {
		return apologize(c, err)
	}
	if len(members) == 0 {
		return c.Reply("Ryhmässä ei ole vielä juojia.")
	}

	var b strings.Builder
	b.WriteString("Ryhmän tilanne:\n")
	for i, m := range members {
		fmt.Fprintf(&b, "%d. %s %.2f‰\n", i+1, m.Nick, m.EBAC.Permilles)
	}
	return c.Reply(strings.TrimRight(b.String(), "\n"))
}
