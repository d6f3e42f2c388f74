package bot

import (
	"fmt"
	"strings"

	"deskplan/internal/status"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var legend = fmt.Sprintf("%s free  %s partially booked  %s fully booked  %s project",
	status.Free.Emoji(), status.PartiallyBooked.Emoji(), status.FullyBooked.Emoji(), status.Project.Emoji())

// showRoom renders every desk with its status and a button that hands
// the desk over to planning.
func (b *Bot) showRoom(chatID int64) {
	views := b.desks.Overview()
	if len(views) == 0 {
		b.reply(chatID, "No desks configured.")
		return
	}

	var text strings.Builder
	text.WriteString("🏢 Room Overview\n")
	text.WriteString(legend)
	text.WriteString("\n\n")

	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, v := range views {
		fmt.Fprintf(&text, "%s %s: %s\n", v.Status.Indicator.Emoji(), v.Desk.Name, strings.ReplaceAll(v.Status.Summary, "\n", ", "))

		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Book "+v.Desk.Name, "room:book:"+v.Desk.ID))
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	b.send(chatID, text.String(), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}
