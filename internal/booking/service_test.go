package booking

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"deskplan/internal/events"
	"deskplan/internal/models"
	"deskplan/internal/slots"
	"deskplan/internal/status"
	"deskplan/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails saves while failing is set.
type flakyStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	failing bool
	saves   int
}

func (f *flakyStore) Save(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	f.saves++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("disk unavailable")
	}
	return f.MemoryStore.Save(ctx, doc)
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func seedDesks() []*models.Desk {
	return []*models.Desk{
		models.NewDesk("0", "", models.TypeSchedule, models.Computer{}),
		models.NewDesk("1", "GPU desk", models.TypeSchedule, models.Computer{Present: true, Kind: models.ComputerGPU, Name: "gpu-1", Shutdownable: true, Screens: 2}),
		models.NewDesk("2", "", models.TypeFullBooking, models.Computer{Screens: 1}),
		models.NewDesk("3", "", models.TypeProject, models.Computer{}),
	}
}

type fixture struct {
	svc    *Service
	store  *flakyStore
	bus    *events.EventBus
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	f := &fixture{
		store: &flakyStore{MemoryStore: storage.NewMemoryStore()},
		bus:   events.NewEventBus(),
	}
	f.bus.SubscribeAll(func(e events.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	f.svc = NewService(f.store, f.bus, &logger)
	f.svc.now = func() time.Time { return time.Date(2024, 2, 5, 9, 30, 15, 123456000, time.Local) }
	require.NoError(t, f.svc.Init(context.Background(), seedDesks()))
	f.events = nil
	return f
}

func refs(pairs ...string) []slots.Ref {
	var out []slots.Ref
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, slots.Ref{Day: models.Weekday(pairs[i]), Slot: pairs[i+1]})
	}
	return out
}

func TestInit(t *testing.T) {
	t.Run("SeedsEmptyStore", func(t *testing.T) {
		f := newFixture(t)
		assert.Len(t, f.svc.Desks(), 4)

		doc, err := f.store.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, doc.Desks, 4)
	})

	t.Run("KeepsStoredDesks", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		store := storage.NewMemoryStore()
		doc := models.NewDocument()
		doc.Desks["0"] = models.NewDesk("0", "Stored", models.TypeFullBooking, models.Computer{})
		require.NoError(t, store.Save(context.Background(), doc))

		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), seedDesks()))

		d, err := svc.Desk("0")
		require.NoError(t, err)
		assert.Equal(t, "Stored", d.Name)
		assert.Len(t, svc.Desks(), 4)
	})

	t.Run("UnreadableDocumentStartsEmpty", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		store := &brokenLoadStore{MemoryStore: storage.NewMemoryStore()}
		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), nil))
		assert.Empty(t, svc.Desks())
	})

	t.Run("UnreadableDocumentSeedsInMemoryOnly", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		store := &brokenLoadStore{MemoryStore: storage.NewMemoryStore()}
		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), seedDesks()))

		assert.Len(t, svc.Desks(), 4)
		assert.Nil(t, store.Bytes(), "seeding must not overwrite the stored document")
	})

	t.Run("UnreadableFileSetAsideBeforeSeeding", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		dir := t.TempDir()
		path := filepath.Join(dir, "tische_config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		store, err := storage.NewFileStore(path, &logger)
		require.NoError(t, err)

		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), seedDesks()))
		assert.Len(t, svc.Desks(), 4)

		copies, err := filepath.Glob(path + ".unreadable-*")
		require.NoError(t, err)
		require.Len(t, copies, 1)
		data, err := os.ReadFile(copies[0])
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(data))
	})

	t.Run("TransientLoadErrorKeepsDocument", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		store := &onceBrokenStore{MemoryStore: storage.NewMemoryStore()}
		doc := models.NewDocument()
		doc.Desks["2"] = models.NewDesk("2", "", models.TypeFullBooking, models.Computer{})
		doc.Desks["2"].FullBooking().Occupant = "Lee"
		require.NoError(t, store.MemoryStore.Save(context.Background(), doc))

		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), seedDesks()))

		assert.Equal(t, 1, store.asides)
		d, err := svc.Desk("2")
		require.NoError(t, err)
		assert.Equal(t, "Lee", d.FullBooking().Occupant)
		assert.Len(t, svc.Desks(), 4)
	})

	t.Run("RepairedLegacyFileKeepsBookings", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		path := filepath.Join(t.TempDir(), "tische_config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"tische":{
		  "0":{"name":"Tisch 0","typ":"stundenplan","rechner":{"vorhanden":false,"typ":"Leer","bildschirme":3},"buchungen":{
		    "Montag_08:00-09:00_20240102100000000000":{"person":"Max","tag":"Montag","zeitslot":"08:00-09:00","rechner_modus":"Kein Rechner","notizen":"","erstellt_am":"2024-01-02 10:00:00"}
		  }},
		  "1":{"name":"Tisch 1","typ":"vollbuchung","rechner":{"vorhanden":false,"typ":"Leer","bildschirme":1},"gebucht_von":"Lee"}
		}}`), 0o644))
		store, err := storage.NewFileStore(path, &logger)
		require.NoError(t, err)

		svc := NewService(store, nil, &logger)
		require.NoError(t, svc.Init(context.Background(), seedDesks()))

		bookings, err := svc.Bookings("0")
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, "Max", bookings[0].Person)
		d1, err := svc.Desk("1")
		require.NoError(t, err)
		assert.Equal(t, "Lee", d1.FullBooking().Occupant)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"Max"`)
		assert.Contains(t, string(data), `"Lee"`)
		assert.Contains(t, buf.String(), "screens 3 clamped to 2")
		assert.Contains(t, buf.String(), "Seed type differs from stored desk")
	})
}

type brokenLoadStore struct {
	*storage.MemoryStore
}

func (b *brokenLoadStore) Load(context.Context) (*models.Document, error) {
	return nil, errors.New("parse document: unexpected EOF")
}

// onceBrokenStore fails its first load and counts set-aside copies.
type onceBrokenStore struct {
	*storage.MemoryStore
	loads  int
	asides int
}

func (o *onceBrokenStore) Load(ctx context.Context) (*models.Document, error) {
	o.loads++
	if o.loads == 1 {
		return nil, errors.New("redis get deskplan:document: i/o timeout")
	}
	return o.MemoryStore.Load(ctx)
}

func (o *onceBrokenStore) SetAside(context.Context) (string, error) {
	o.asides++
	return "deskplan:document:unreadable:test", nil
}

func TestAddBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesOneBookingPerSlot", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{
			Person: "  Ana ",
			Slots:  refs("Monday", "08:00-09:00", "Wednesday", "10:00-11:00"),
			Notes:  "thesis",
		})
		require.NoError(t, err)
		require.Len(t, created, 2)

		assert.Equal(t, "Monday_08:00-09:00_20240205093015123456", created[0].ID)
		assert.Equal(t, "Ana", created[0].Person)
		assert.Equal(t, models.ModeNoComputer, created[0].Mode)
		assert.Equal(t, "thesis", created[1].Notes)
		assert.Equal(t, 0, created[0].CreatedAt.Nanosecond())

		bookings, err := f.svc.Bookings("0")
		require.NoError(t, err)
		assert.Len(t, bookings, 2)

		st, err := f.svc.Status("0")
		require.NoError(t, err)
		assert.Equal(t, status.PartiallyBooked, st.Indicator)
		assert.Equal(t, "2 Bookings", st.Summary)

		require.Len(t, f.events, 1)
		assert.Equal(t, events.BookingsCreated, f.events[0].Type)
	})

	t.Run("ModeDefaultsOnComputerDesk", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.AddBooking(ctx, "1", AddBookingRequest{Person: "Bo", Slots: refs("Tuesday", "09:00-10:00")})
		require.NoError(t, err)
		assert.Equal(t, models.ModeScreensOnly, created[0].Mode)

		created, err = f.svc.AddBooking(ctx, "1", AddBookingRequest{Person: "Bo", Slots: refs("Tuesday", "10:00-11:00"), Mode: models.ModeTrainingMode})
		require.NoError(t, err)
		assert.Equal(t, models.ModeTrainingMode, created[0].Mode)

		_, err = f.svc.AddBooking(ctx, "1", AddBookingRequest{Person: "Bo", Slots: refs("Tuesday", "11:00-12:00"), Mode: models.ModeNoComputer})
		assert.True(t, IsValidation(err))
	})

	t.Run("ConflictCreatesNothing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "10:00-11:00")})
		require.NoError(t, err)
		savesBefore := f.store.saves

		_, err = f.svc.AddBooking(ctx, "0", AddBookingRequest{
			Person: "Bo",
			Slots:  refs("Monday", "09:00-10:00", "Monday", "10:00-11:00", "Monday", "11:00-12:00"),
		})
		require.Error(t, err)
		var ce *ConflictError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, models.Monday, ce.Day)
		assert.Equal(t, "10:00-11:00", ce.Slot)
		assert.Equal(t, "slot already booked on Monday 10:00-11:00", err.Error())
		assert.Equal(t, CodeConflict, Code(err))

		bookings, _ := f.svc.Bookings("0")
		require.Len(t, bookings, 1)
		assert.Equal(t, "Ana", bookings[0].Person)
		assert.Equal(t, savesBefore, f.store.saves)
	})

	t.Run("DuplicateSlotInRequest", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Friday", "08:00-09:00", "Friday", "08:00-09:00")})
		assert.True(t, IsConflict(err))
		bookings, _ := f.svc.Bookings("0")
		assert.Empty(t, bookings)
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(t)
		tests := []struct {
			name  string
			desk  string
			req   AddBookingRequest
			field string
		}{
			{"empty person", "0", AddBookingRequest{Person: "   ", Slots: refs("Monday", "08:00-09:00")}, "person"},
			{"no slots", "0", AddBookingRequest{Person: "Ana"}, "slots"},
			{"weekend", "0", AddBookingRequest{Person: "Ana", Slots: refs("Saturday", "08:00-09:00")}, "slots"},
			{"evening slot", "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "18:00-19:00")}, "slots"},
			{"full booking desk", "2", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")}, "desk"},
			{"project desk", "3", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")}, "desk"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.AddBooking(ctx, tt.desk, tt.req)
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "got %v", err)
				assert.Equal(t, tt.field, ve.Field)
			})
		}
	})

	t.Run("UnknownDesk", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddBooking(ctx, "42", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")})
		assert.True(t, IsNotFound(err))
	})

	t.Run("UnknownDeskReportedBeforeInvalidSlot", func(t *testing.T) {
		f := newFixture(t)
		for _, req := range []AddBookingRequest{
			{Person: "Ana", Slots: refs("Saturday", "08:00-09:00")},
			{Person: "Ana", Slots: refs("Monday", "18:00-19:00")},
			{Person: "", Slots: refs("Monday", "08:00-09:00")},
		} {
			_, err := f.svc.AddBooking(ctx, "42", req)
			assert.Equal(t, CodeNotFound, Code(err), "got %v", err)
		}
	})
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicts := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Thursday", "12:00-13:00")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestRemoveBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveBooking(ctx, "0", created[0].ID))
	bookings, _ := f.svc.Bookings("0")
	assert.Empty(t, bookings)

	err = f.svc.RemoveBooking(ctx, "0", created[0].ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "booking", nf.Resource)

	assert.True(t, IsNotFound(f.svc.RemoveBooking(ctx, "42", "x")))
	assert.True(t, IsNotFound(f.svc.RemoveBooking(ctx, "2", "x")))

	// the freed slot can be booked again
	_, err = f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Bo", Slots: refs("Monday", "08:00-09:00")})
	assert.NoError(t, err)
}

func TestSetOccupant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.SetOccupant(ctx, "2", "Cleo"))
	st, _ := f.svc.Status("2")
	assert.Equal(t, status.Status{Indicator: status.FullyBooked, Summary: "Booked: Cleo"}, st)

	require.NoError(t, f.svc.SetOccupant(ctx, "2", ""))
	st, _ = f.svc.Status("2")
	assert.Equal(t, status.Free, st.Indicator)

	assert.True(t, IsValidation(f.svc.SetOccupant(ctx, "0", "Cleo")))
	assert.True(t, IsNotFound(f.svc.SetOccupant(ctx, "42", "Cleo")))
}

func TestSetProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.SetProject(ctx, "3", "X", "bob@x"))
	st, _ := f.svc.Status("3")
	assert.Equal(t, "Project: X\nContact: bob@x", st.Summary)

	require.NoError(t, f.svc.SetProject(ctx, "3", "", "bob@x"))
	st, _ = f.svc.Status("3")
	assert.Equal(t, "Project (unassigned)", st.Summary)

	assert.True(t, IsValidation(f.svc.SetProject(ctx, "2", "X", "")))
}

func TestConfigureDesk(t *testing.T) {
	ctx := context.Background()

	t.Run("TypeChangeDiscardsBookings", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")})
		require.NoError(t, err)
		f.events = nil

		d, _ := f.svc.Desk("0")
		settings := d.Settings()
		settings.Type = models.TypeFullBooking

		change, err := f.svc.ConfigureDesk(ctx, "0", settings)
		require.NoError(t, err)
		assert.True(t, change.TypeChanged)
		assert.Equal(t, "1 bookings", change.Discarded)

		d, _ = f.svc.Desk("0")
		require.NotNil(t, d.FullBooking())
		assert.Equal(t, "", d.FullBooking().Occupant)

		var types []string
		for _, e := range f.events {
			types = append(types, e.Type)
		}
		assert.Equal(t, []string{events.DeskReconfigured, events.PayloadDiscarded}, types)

		persisted := string(f.store.Bytes())
		assert.NotContains(t, persisted, "Monday_08:00-09:00")
	})

	t.Run("ComputerRemovalNormalizes", func(t *testing.T) {
		f := newFixture(t)
		d, _ := f.svc.Desk("1")
		settings := d.Settings()
		settings.Computer.Present = false

		_, err := f.svc.ConfigureDesk(ctx, "1", settings)
		require.NoError(t, err)
		d, _ = f.svc.Desk("1")
		assert.Equal(t, models.ComputerNone, d.Computer.Kind)
		assert.Equal(t, "", d.Computer.Name)
		assert.False(t, d.Computer.Shutdownable)
		assert.Equal(t, 2, d.Computer.Screens)
	})

	t.Run("InvalidSettings", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ConfigureDesk(ctx, "1", models.DeskSettings{Type: "vollbuchung"})
		assert.True(t, IsValidation(err))
		_, err = f.svc.ConfigureDesk(ctx, "99", models.DeskSettings{Type: models.TypeSchedule})
		assert.True(t, IsNotFound(err))
	})
}

func TestFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.setFailing(true)

	_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")})
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.Equal(t, CodePersistence, Code(err))
	assert.True(t, strings.Contains(err.Error(), "disk unavailable"))

	bookings, _ := f.svc.Bookings("0")
	assert.Empty(t, bookings)
	assert.Error(t, f.svc.SetOccupant(ctx, "2", "Cleo"))
	st, _ := f.svc.Status("2")
	assert.Equal(t, status.Free, st.Indicator)
	assert.Empty(t, f.events)

	f.store.setFailing(false)
	_, err = f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Monday", "08:00-09:00")})
	assert.NoError(t, err)
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.AddBooking(ctx, "1", AddBookingRequest{Person: "Ana", Slots: refs("Friday", "17:00-18:00"), Mode: models.ModeComputerActive})
	require.NoError(t, err)
	require.NoError(t, f.svc.SetProject(ctx, "3", "Apollo", ""))

	logger := zerolog.New(io.Discard)
	restarted := NewService(f.store, nil, &logger)
	require.NoError(t, restarted.Init(ctx, seedDesks()))

	bookings, err := restarted.Bookings("1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.ModeComputerActive, bookings[0].Mode)

	st, _ := restarted.Status("3")
	assert.Equal(t, "Project: Apollo", st.Summary)
}

func TestReadsReturnCopies(t *testing.T) {
	f := newFixture(t)
	d, _ := f.svc.Desk("2")
	d.FullBooking().Occupant = "Mallory"
	d.Name = "changed"

	again, _ := f.svc.Desk("2")
	assert.Equal(t, "", again.FullBooking().Occupant)
	assert.Equal(t, "Desk 2", again.Name)
}

func TestOverviewAndWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.AddBooking(ctx, "0", AddBookingRequest{Person: "Ana", Slots: refs("Tuesday", "09:00-10:00")})
	require.NoError(t, err)

	overview := f.svc.Overview()
	require.Len(t, overview, 4)
	assert.Equal(t, "0", overview[0].Desk.ID)
	assert.Equal(t, status.PartiallyBooked, overview[0].Status.Indicator)
	assert.Equal(t, status.Project, overview[3].Status.Indicator)

	week, err := f.svc.Week("0")
	require.NoError(t, err)
	assert.Equal(t, "Ana", week.Cells[1][1].Person())

	_, err = f.svc.Week("42")
	assert.True(t, IsNotFound(err))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, CodeValidation, Code(&ValidationError{Field: "x"}))
	assert.Equal(t, CodeNotFound, Code(&NotFoundError{Resource: "desk", ID: "1"}))
	assert.Equal(t, CodeInternal, Code(errors.New("boom")))
}
