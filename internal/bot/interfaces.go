package bot

import (
	"context"

	"deskplan/internal/booking"
	"deskplan/internal/models"
	"deskplan/internal/registry"
	"deskplan/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DeskService is the booking engine as used by the chat surface.
type DeskService interface {
	Overview() []booking.DeskView
	Desks() []models.Desk
	Desk(id string) (models.Desk, error)
	Bookings(id string) ([]models.Booking, error)
	AddBooking(ctx context.Context, deskID string, req booking.AddBookingRequest) ([]models.Booking, error)
	RemoveBooking(ctx context.Context, deskID, bookingID string) error
	SetOccupant(ctx context.Context, deskID, name string) error
	SetProject(ctx context.Context, deskID, project, contact string) error
	ConfigureDesk(ctx context.Context, deskID string, settings models.DeskSettings) (registry.Change, error)
}

// SessionStore keeps the per-operator UI state.
type SessionStore interface {
	Get(ctx context.Context, operatorID int64) (*session.Session, error)
	Save(ctx context.Context, st *session.Session) error
	Clear(ctx context.Context, operatorID int64) error
}

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}
