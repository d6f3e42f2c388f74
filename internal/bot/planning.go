package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"deskplan/internal/booking"
	"deskplan/internal/models"
	"deskplan/internal/session"
	"deskplan/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	draftPerson  = "person"
	draftMode    = "mode"
	draftProject = "project"
)

var dayShort = map[models.Weekday]string{
	models.Monday:    "Mon",
	models.Tuesday:   "Tue",
	models.Wednesday: "Wed",
	models.Thursday:  "Thu",
	models.Friday:    "Fri",
	models.Saturday:  "Sat",
	models.Sunday:    "Sun",
}

func navRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔁 Other desk", fmt.Sprintf("page:%s:0", pickerPlanning)),
		tgbotapi.NewInlineKeyboardButtonData("🏢 Room", "room"),
	)
}

// showPlanning renders the planning view of the current desk. A desk
// handed over from the room overview takes precedence.
func (b *Bot) showPlanning(_ context.Context, chatID int64, st *session.Session) {
	id := st.PlanningDesk("")
	if id == "" {
		b.sendDeskPicker(chatID, 0, pickerPlanning)
		return
	}
	d, err := b.desks.Desk(id)
	if err != nil {
		st.Desk = ""
		st.Selected = nil
		b.sendDeskPicker(chatID, 0, pickerPlanning)
		return
	}

	switch p := d.Payload.(type) {
	case *models.Schedule:
		b.showSchedule(chatID, st, &d, p)
	case *models.FullBooking:
		text := fmt.Sprintf("🗓 %s (%s)\n\n", d.Name, d.Type.Label())
		if p.Occupant == "" {
			text += "Free"
		} else {
			text += "Booked: " + p.Occupant
		}
		b.send(chatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Set occupant", "occ:set"),
				tgbotapi.NewInlineKeyboardButtonData("🧹 Clear", "occ:clear"),
			),
			navRow(),
		))
	case *models.ProjectAssignment:
		text := fmt.Sprintf("🗓 %s (%s)\n\n", d.Name, d.Type.Label())
		if p.Project == "" {
			text += "No project assigned"
		} else {
			text += "Project: " + p.Project
			if p.Contact != "" {
				text += "\nContact: " + p.Contact
			}
		}
		b.send(chatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Set project", "proj:set"),
			),
			navRow(),
		))
	}
}

func (b *Bot) showSchedule(chatID int64, st *session.Session, d *models.Desk, s *models.Schedule) {
	var text strings.Builder
	fmt.Fprintf(&text, "🗓 %s (%s)\n", d.Name, d.Type.Label())
	if d.Computer.Present {
		fmt.Fprintf(&text, "Computer: %s %s, %d screen(s)\n", d.Computer.Kind, d.Computer.Name, d.Computer.Screens)
	} else {
		fmt.Fprintf(&text, "No computer, %d screen(s)\n", d.Computer.Screens)
	}

	perDay := make(map[models.Weekday]int)
	for _, bk := range slots.ScheduleBookings(s) {
		perDay[bk.Day]++
	}
	text.WriteString("\n")
	for _, day := range models.BookableWeekdays {
		fmt.Fprintf(&text, "%s: %d booked\n", day, perDay[day])
	}
	if len(st.Selected) > 0 {
		refs := make([]string, 0, len(st.Selected))
		for _, r := range st.Selected {
			refs = append(refs, dayShort[r.Day]+" "+r.Slot)
		}
		fmt.Fprintf(&text, "\nSelected: %s", strings.Join(refs, ", "))
	}

	var days []tgbotapi.InlineKeyboardButton
	for _, day := range models.BookableWeekdays {
		days = append(days, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s (%d)", dayShort[day], perDay[day]),
			"day:"+string(day),
		))
	}

	keyboard := [][]tgbotapi.InlineKeyboardButton{
		days[:3],
		days[3:],
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Bookings", "bookings"),
			tgbotapi.NewInlineKeyboardButtonData("✖ Clear selection", "clear"),
		),
	}
	if n := len(st.Selected); n > 0 {
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Book %d slot(s)", n), "book"),
		))
	}
	keyboard = append(keyboard, navRow())

	b.send(chatID, text.String(), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}

// showDay lists the bookable slots of one weekday as toggles.
func (b *Bot) showDay(chatID int64, st *session.Session, dayName string) {
	day := models.Weekday(dayName)
	if !day.Bookable() {
		b.reply(chatID, "Bookings are only possible Monday to Friday.")
		return
	}
	d, err := b.desks.Desk(st.Desk)
	if err != nil || d.Schedule() == nil {
		b.reply(chatID, "Select a timetable desk first.")
		return
	}
	sched := d.Schedule()

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for h := slots.BookingStartHour; h < slots.BookingEndHour; h++ {
		slot := slots.Label(h)
		var btn tgbotapi.InlineKeyboardButton
		switch bk, taken := sched.Occupied(day, slot); {
		case taken:
			btn = tgbotapi.NewInlineKeyboardButtonData("🔒 "+slot+" "+bk.Person, "noop")
		case st.IsSelected(slots.Ref{Day: day, Slot: slot}):
			btn = tgbotapi.NewInlineKeyboardButtonData("✅ "+slot, fmt.Sprintf("slot:%s:%d", day, h))
		default:
			btn = tgbotapi.NewInlineKeyboardButtonData("▫️ "+slot, fmt.Sprintf("slot:%s:%d", day, h))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(btn))
	}
	keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "plan"),
	))

	b.send(chatID, fmt.Sprintf("%s, %s: tap slots to select them", d.Name, day), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}

// toggleSlot handles "slot:<Day>:<hour>".
func (b *Bot) toggleSlot(chatID int64, st *session.Session, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	ref := slots.Ref{Day: models.Weekday(parts[0]), Slot: slots.Label(h)}
	if !slots.Bookable(ref.Day, ref.Slot) {
		return
	}
	st.ToggleSlot(ref)
	b.showDay(chatID, st, parts[0])
}

func (b *Bot) startBooking(chatID int64, st *session.Session) {
	if len(st.Selected) == 0 {
		b.reply(chatID, "Select at least one slot first.")
		return
	}
	st.Await(session.StepPerson)
	b.reply(chatID, fmt.Sprintf("Booking %d slot(s). Enter the person's name:", len(st.Selected)))
}

func (b *Bot) receivePerson(_ context.Context, chatID int64, st *session.Session, text string) {
	st.SetDraft(draftPerson, text)

	d, err := b.desks.Desk(st.Desk)
	if err == nil && d.Computer.Present {
		st.Await(session.StepNone)
		var keyboard [][]tgbotapi.InlineKeyboardButton
		for i, m := range models.ComputerModes {
			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(string(m), fmt.Sprintf("cmode:%d", i)),
			))
		}
		b.send(chatID, "Computer mode:", tgbotapi.NewInlineKeyboardMarkup(keyboard...))
		return
	}
	b.askNotes(chatID, st)
}

// receiveMode handles "cmode:<index>".
func (b *Bot) receiveMode(chatID int64, st *session.Session, idx string) {
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(models.ComputerModes) {
		return
	}
	if st.DraftValue(draftPerson) == "" {
		b.reply(chatID, "Start the booking again with ✅ Book.")
		return
	}
	st.SetDraft(draftMode, string(models.ComputerModes[i]))
	b.askNotes(chatID, st)
}

func (b *Bot) askNotes(chatID int64, st *session.Session) {
	st.Await(session.StepNotes)
	b.send(chatID, "Notes (optional):", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Skip", "notes:skip")),
	))
}

func (b *Bot) finishBooking(ctx context.Context, chatID int64, st *session.Session, notes string) {
	person := st.DraftValue(draftPerson)
	if person == "" || len(st.Selected) == 0 {
		st.Await(session.StepNone)
		b.reply(chatID, "Start the booking again with ✅ Book.")
		return
	}

	created, err := b.desks.AddBooking(ctx, st.Desk, booking.AddBookingRequest{
		Person: person,
		Slots:  st.Selected,
		Mode:   models.ComputerMode(st.DraftValue(draftMode)),
		Notes:  notes,
	})
	st.Await(session.StepNone)
	if err != nil {
		b.replyError(ctx, chatID, err)
		b.showPlanning(ctx, chatID, st)
		return
	}

	st.ResetSlots()
	b.reply(chatID, fmt.Sprintf("✅ Booked %d slot(s) for %s.", len(created), person))
	b.showPlanning(ctx, chatID, st)
}

func (b *Bot) showBookings(chatID int64, st *session.Session) {
	bookings, err := b.desks.Bookings(st.Desk)
	if err != nil {
		b.reply(chatID, "Select a desk first.")
		return
	}
	if len(bookings) == 0 {
		b.send(chatID, "No bookings.", tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "plan")),
		))
		return
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, bk := range bookings {
		label := fmt.Sprintf("🗑 %s %s %s", dayShort[bk.Day], bk.Slot, bk.Person)
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "del:"+bk.ID),
		))
	}
	keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "plan"),
	))
	b.send(chatID, fmt.Sprintf("%d booking(s). Tap one to remove it.", len(bookings)), tgbotapi.NewInlineKeyboardMarkup(keyboard...))
}

func (b *Bot) removeBooking(ctx context.Context, chatID int64, st *session.Session, bookingID string) {
	if err := b.desks.RemoveBooking(ctx, st.Desk, bookingID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, "🗑 Booking removed.")
	b.showBookings(chatID, st)
}

func (b *Bot) applyOccupant(ctx context.Context, chatID int64, st *session.Session, name string) {
	st.Await(session.StepNone)
	if err := b.desks.SetOccupant(ctx, st.Desk, name); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.showPlanning(ctx, chatID, st)
}

func (b *Bot) receiveProject(chatID int64, st *session.Session, text string) {
	st.SetDraft(draftProject, text)
	st.Await(session.StepContact)
	b.send(chatID, "Contact person (optional):", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Skip", "contact:skip")),
	))
}

func (b *Bot) finishProject(ctx context.Context, chatID int64, st *session.Session, contact string) {
	project := st.DraftValue(draftProject)
	st.Await(session.StepNone)
	if err := b.desks.SetProject(ctx, st.Desk, project, contact); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.showPlanning(ctx, chatID, st)
}
