// Package bot is the Telegram surface of the desk planner. It offers the
// three operator modes: planning, room overview and desk configuration.
package bot

import (
	"context"
	"fmt"
	"strings"

	"deskplan/internal/booking"
	"deskplan/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	btnPlanning = "🗓 Planning"
	btnRoom     = "🏢 Room Overview"
	btnConfig   = "⚙️ Desk Configuration"
)

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnPlanning),
		tgbotapi.NewKeyboardButton(btnRoom),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnConfig),
	),
)

// Bot is a Telegram front end for the booking engine.
type Bot struct {
	tg       telegramClient
	desks    DeskService
	sessions SessionStore
	logger   *zerolog.Logger
}

func New(token string, debug bool, desks DeskService, sessions SessionStore, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return NewWithTelegramClient(&realTelegramClient{api: api}, desks, sessions, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, desks DeskService, sessions SessionStore, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	l := logger.With().Str("component", "bot").Logger()
	return &Bot{
		tg:       tg,
		desks:    desks,
		sessions: sessions,
		logger:   &l,
	}, nil
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil && update.Message.From != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

// loadSession returns the operator session. Repository failures fall
// back to a fresh session so the chat stays usable.
func (b *Bot) loadSession(ctx context.Context, userID int64) *session.Session {
	st, err := b.sessions.Get(ctx, userID)
	if err != nil || st == nil {
		return session.New(userID)
	}
	return st
}

func (b *Bot) saveSession(ctx context.Context, st *session.Session) {
	if err := b.sessions.Save(ctx, st); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", st.OperatorID).Msg("Failed to save session")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID
	st := b.loadSession(ctx, msg.From.ID)
	defer b.saveSession(ctx, st)

	// Commands and menu buttons interrupt any active input.
	switch {
	case strings.HasPrefix(text, "/start"):
		st.SwitchMode(session.ModePlanning)
		b.sendMainMenu(chatID)
		return
	case strings.HasPrefix(text, "/help"):
		b.reply(chatID, helpText)
		return
	case strings.HasPrefix(text, "/cancel"):
		st.ResetSlots()
		b.reply(chatID, "Cancelled.")
		return
	case text == btnPlanning || strings.HasPrefix(text, "/plan"):
		st.SwitchMode(session.ModePlanning)
		b.showPlanning(ctx, chatID, st)
		return
	case text == btnRoom || strings.HasPrefix(text, "/room"):
		st.SwitchMode(session.ModeRoomOverview)
		b.showRoom(chatID)
		return
	case text == btnConfig || strings.HasPrefix(text, "/config"):
		st.SwitchMode(session.ModeConfiguration)
		b.sendDeskPicker(chatID, 0, pickerConfig)
		return
	}

	if text == "" {
		return
	}

	switch st.Step {
	case session.StepPerson:
		b.receivePerson(ctx, chatID, st, text)
	case session.StepNotes:
		b.finishBooking(ctx, chatID, st, text)
	case session.StepOccupant:
		b.applyOccupant(ctx, chatID, st, text)
	case session.StepProject:
		b.receiveProject(chatID, st, text)
	case session.StepContact:
		b.finishProject(ctx, chatID, st, text)
	case session.StepDeskName:
		b.receiveDeskName(ctx, chatID, st, text)
	default:
		b.sendMainMenu(chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	_ = b.answerCallback(cq.ID)

	data := cq.Data
	if data == "noop" || cq.Message == nil {
		return
	}

	chatID := cq.Message.Chat.ID
	st := b.loadSession(ctx, cq.From.ID)
	defer b.saveSession(ctx, st)

	switch {
	case strings.HasPrefix(data, "room:book:"):
		st.BookFromRoom(strings.TrimPrefix(data, "room:book:"))
		b.showPlanning(ctx, chatID, st)
	case data == "room":
		st.SwitchMode(session.ModeRoomOverview)
		b.showRoom(chatID)
	case strings.HasPrefix(data, "page:"):
		b.handlePage(chatID, data)
	case strings.HasPrefix(data, "desk:"):
		st.SelectDesk(strings.TrimPrefix(data, "desk:"))
		b.showPlanning(ctx, chatID, st)
	case data == "plan":
		st.Await(session.StepNone)
		b.showPlanning(ctx, chatID, st)
	case strings.HasPrefix(data, "day:"):
		b.showDay(chatID, st, strings.TrimPrefix(data, "day:"))
	case strings.HasPrefix(data, "slot:"):
		b.toggleSlot(chatID, st, strings.TrimPrefix(data, "slot:"))
	case data == "book":
		b.startBooking(chatID, st)
	case strings.HasPrefix(data, "cmode:"):
		b.receiveMode(chatID, st, strings.TrimPrefix(data, "cmode:"))
	case data == "notes:skip":
		b.finishBooking(ctx, chatID, st, "")
	case data == "clear":
		st.ResetSlots()
		b.showPlanning(ctx, chatID, st)
	case data == "bookings":
		b.showBookings(chatID, st)
	case strings.HasPrefix(data, "del:"):
		b.removeBooking(ctx, chatID, st, strings.TrimPrefix(data, "del:"))
	case data == "occ:set":
		st.Await(session.StepOccupant)
		b.reply(chatID, "Enter the name of the person occupying the desk:")
	case data == "occ:clear":
		b.applyOccupant(ctx, chatID, st, "")
	case data == "proj:set":
		st.Await(session.StepProject)
		b.reply(chatID, "Enter the project name:")
	case data == "contact:skip":
		b.finishProject(ctx, chatID, st, "")
	case strings.HasPrefix(data, "cfg"):
		b.handleConfigCallback(ctx, chatID, st, data)
	}
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Choose a mode:")
	msg.ReplyMarkup = mainMenu
	_, _ = b.tg.Send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.tg.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(markup.InlineKeyboard) > 0 {
		msg.ReplyMarkup = markup
	}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

// replyError reports a failed operation in operator terms.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	switch booking.Code(err) {
	case booking.CodeValidation, booking.CodeConflict, booking.CodeNotFound:
		b.reply(chatID, "⚠️ "+err.Error())
	case booking.CodePersistence:
		zerolog.Ctx(ctx).Error().Err(err).Msg("Save failed")
		b.reply(chatID, "❌ The change could not be saved. Nothing was changed, please try again.")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("Unexpected error")
		b.reply(chatID, "❌ Something went wrong.")
	}
}

const helpText = `Modes:
🗓 Planning: book timetable slots, set occupants and projects
🏢 Room Overview: status of every desk, "Book" jumps into planning
⚙️ Desk Configuration: type, name, computer and screens

Commands: /plan, /room, /config, /cancel, /help`
