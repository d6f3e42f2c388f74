package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"deskplan/internal/models"
	"deskplan/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func checkmark(on bool) string {
	if on {
		return "✅"
	}
	return "▫️"
}

func (b *Bot) handleConfigCallback(ctx context.Context, chatID int64, st *session.Session, data string) {
	switch {
	case strings.HasPrefix(data, "cfg:"):
		st.SelectDesk(strings.TrimPrefix(data, "cfg:"))
		b.showConfig(chatID, st)
	case strings.HasPrefix(data, "cfgtype:"):
		t := models.BookingType(strings.TrimPrefix(data, "cfgtype:"))
		b.configure(ctx, chatID, st, func(s *models.DeskSettings) { s.Type = t })
	case data == "cfgpc":
		b.configure(ctx, chatID, st, func(s *models.DeskSettings) {
			s.Computer.Present = !s.Computer.Present
			if s.Computer.Present && s.Computer.Kind == models.ComputerNone {
				s.Computer.Kind = models.ComputerCPU
			}
		})
	case strings.HasPrefix(data, "cfgkind:"):
		k := models.ComputerKind(strings.TrimPrefix(data, "cfgkind:"))
		b.configure(ctx, chatID, st, func(s *models.DeskSettings) { s.Computer.Kind = k })
	case data == "cfgshut":
		b.configure(ctx, chatID, st, func(s *models.DeskSettings) { s.Computer.Shutdownable = !s.Computer.Shutdownable })
	case strings.HasPrefix(data, "cfgscr:"):
		n, err := strconv.Atoi(strings.TrimPrefix(data, "cfgscr:"))
		if err != nil {
			return
		}
		b.configure(ctx, chatID, st, func(s *models.DeskSettings) { s.Computer.Screens = n })
	case data == "cfgname":
		st.Await(session.StepDeskName)
		b.reply(chatID, "Enter the new desk name (\"-\" restores the default):")
	}
}

func (b *Bot) receiveDeskName(ctx context.Context, chatID int64, st *session.Session, text string) {
	st.Await(session.StepNone)
	if text == "-" {
		text = ""
	}
	b.configure(ctx, chatID, st, func(s *models.DeskSettings) { s.Name = text })
}

// configure applies one settings change to the selected desk.
func (b *Bot) configure(ctx context.Context, chatID int64, st *session.Session, mutate func(*models.DeskSettings)) {
	d, err := b.desks.Desk(st.Desk)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	settings := d.Settings()
	mutate(&settings)

	change, err := b.desks.ConfigureDesk(ctx, st.Desk, settings)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if change.TypeChanged && change.Discarded != "" {
		b.reply(chatID, fmt.Sprintf("⚠️ Type changed from %s. Discarded: %s.", change.PreviousType.Label(), change.Discarded))
	}
	b.showConfig(chatID, st)
}

func (b *Bot) showConfig(chatID int64, st *session.Session) {
	d, err := b.desks.Desk(st.Desk)
	if err != nil {
		b.sendDeskPicker(chatID, 0, pickerConfig)
		return
	}
	c := d.Computer

	var text strings.Builder
	fmt.Fprintf(&text, "⚙️ %s (id %s)\n\n", d.Name, d.ID)
	fmt.Fprintf(&text, "Type: %s\n", d.Type.Label())
	if c.Present {
		fmt.Fprintf(&text, "Computer: %s %s\n", c.Kind, c.Name)
		if c.Shutdownable {
			text.WriteString("Shutdownable: yes\n")
		} else {
			text.WriteString("Shutdownable: no\n")
		}
	} else {
		text.WriteString("Computer: none\n")
	}
	fmt.Fprintf(&text, "Screens: %d", c.Screens)

	var types []tgbotapi.InlineKeyboardButton
	for _, t := range models.BookingTypes {
		types = append(types, tgbotapi.NewInlineKeyboardButtonData(checkmark(d.Type == t)+" "+t.Label(), "cfgtype:"+string(t)))
	}

	keyboard := [][]tgbotapi.InlineKeyboardButton{
		types,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(checkmark(c.Present)+" Computer", "cfgpc"),
		),
	}
	if c.Present {
		var kinds []tgbotapi.InlineKeyboardButton
		for _, k := range models.ComputerKinds {
			if k == models.ComputerNone {
				continue
			}
			kinds = append(kinds, tgbotapi.NewInlineKeyboardButtonData(checkmark(c.Kind == k)+" "+string(k), "cfgkind:"+string(k)))
		}
		kinds = append(kinds, tgbotapi.NewInlineKeyboardButtonData(checkmark(c.Shutdownable)+" Shutdownable", "cfgshut"))
		keyboard = append(keyboard, kinds)
	}

	var screens []tgbotapi.InlineKeyboardButton
	for n := 0; n <= models.MaxScreens; n++ {
		screens = append(screens, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d 🖥", checkmark(c.Screens == n), n),
			fmt.Sprintf("cfgscr:%d", n),
		))
	}
	keyboard = append(keyboard, screens, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Rename", "cfgname"),
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Desks", fmt.Sprintf("page:%s:0", pickerConfig)),
	))

	b.send(chatID, text.String(), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}
