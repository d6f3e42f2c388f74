package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const desksPerPage = 8

type pickerKind string

const (
	pickerPlanning pickerKind = "plan"
	pickerConfig   pickerKind = "cfg"
)

func (k pickerKind) itemPrefix() string {
	if k == pickerConfig {
		return "cfg:"
	}
	return "desk:"
}

func (k pickerKind) title() string {
	if k == pickerConfig {
		return "⚙️ Which desk do you want to configure?"
	}
	return "🗓 Which desk do you want to plan?"
}

// sendDeskPicker lists the desks page by page.
func (b *Bot) sendDeskPicker(chatID int64, page int, kind pickerKind) {
	desks := b.desks.Desks()
	pages := (len(desks) + desksPerPage - 1) / desksPerPage
	if pages == 0 {
		b.reply(chatID, "No desks configured.")
		return
	}
	if page < 0 || page >= pages {
		page = 0
	}

	start := page * desksPerPage
	end := start + desksPerPage
	if end > len(desks) {
		end = len(desks)
	}

	var text strings.Builder
	text.WriteString(kind.title())
	if pages > 1 {
		fmt.Fprintf(&text, "\n\nPage %d of %d", page+1, pages)
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, d := range desks[start:end] {
		label := fmt.Sprintf("%s (%s)", d.Name, d.Type.Label())
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, kind.itemPrefix()+d.ID),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("page:%s:%d", kind, page-1)))
	}
	if end < len(desks) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("page:%s:%d", kind, page+1)))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	b.send(chatID, text.String(), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}

// handlePage handles "page:<kind>:<n>".
func (b *Bot) handlePage(chatID int64, data string) {
	parts := strings.Split(strings.TrimPrefix(data, "page:"), ":")
	if len(parts) != 2 {
		return
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	b.sendDeskPicker(chatID, page, pickerKind(parts[0]))
}
