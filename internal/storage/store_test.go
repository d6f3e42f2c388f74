package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deskplan/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func sampleDocument() *models.Document {
	doc := models.NewDocument()
	sched := models.NewDesk("1", "Window", models.TypeSchedule, models.Computer{Present: true, Kind: models.ComputerGPU, Name: "gpu-1", Screens: 2})
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	id := models.BookingID(models.Monday, "08:00-09:00", at)
	sched.Schedule().Bookings[id] = models.Booking{ID: id, Person: "Ana", Day: models.Monday, Slot: "08:00-09:00", Mode: models.ModeScreensOnly, CreatedAt: at}
	doc.Desks["1"] = sched

	full := models.NewDesk("2", "", models.TypeFullBooking, models.Computer{})
	full.FullBooking().Occupant = "Bo"
	doc.Desks["2"] = full
	return doc
}

// storeContract runs the behaviour every Store implementation shares.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	doc := sampleDocument()
	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.DeskIDs(), got.DeskIDs())
	assert.Equal(t, "Bo", got.Desks["2"].FullBooking().Occupant)
	assert.Len(t, got.Desks["1"].Schedule().Bookings, 1)

	doc.Desks["2"].FullBooking().Occupant = ""
	require.NoError(t, s.Save(ctx, doc))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got.Desks["2"].FullBooking().Occupant)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "tische_config.json")
	s, err := NewFileStore(path, discard())
	require.NoError(t, err)

	storeContract(t, s)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files may be left behind")
	assert.Equal(t, "tische_config.json", entries[0].Name())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestFileStoreLoadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tische_config.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	s, err := NewFileStore(path, discard())
	require.NoError(t, err)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Montag")
	assert.Contains(t, string(data), `"schema_version": 2`)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path, discard())
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFileStoreLogsRepairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tische_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tische":{"0":{"typ":"schedule","rechner":{"bildschirme":3},"buchungen":{}}}}`), 0o644))

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s, err := NewFileStore(path, &logger)
	require.NoError(t, err)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MaxScreens, doc.Desks["0"].Computer.Screens)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "screens 3 clamped to 2")
}

func TestSetAside(t *testing.T) {
	ctx := context.Background()
	corrupt := []byte("{not json")

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.json")
		require.NoError(t, os.WriteFile(path, corrupt, 0o644))
		s, err := NewFileStore(path, discard())
		require.NoError(t, err)

		dst, err := s.SetAside(ctx)
		require.NoError(t, err)
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, corrupt, data)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		require.NoError(t, mr.Set(DefaultRedisKey, string(corrupt)))

		dst, err := NewRedisStore(client, "", discard()).SetAside(ctx)
		require.NoError(t, err)
		got, err := mr.Get(dst)
		require.NoError(t, err)
		assert.Equal(t, string(corrupt), got)
	})

	t.Run("SQLite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "deskplan.db"), discard())
		require.NoError(t, err)
		defer s.Close()

		_, err = s.SetAside(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.Save(ctx, sampleDocument()))
		dst, err := s.SetAside(ctx)
		require.NoError(t, err)
		var n int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE key = ?`, dst).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("RetryingForwards", func(t *testing.T) {
		_, err := NewRetryingStore(NewMemoryStore(), DefaultRetryConfig(), discard()).SetAside(ctx)
		assert.ErrorIs(t, err, errors.ErrUnsupported)
	})
}

func TestSQLiteStore(t *testing.T) {
	logger := zerolog.New(io.Discard)
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "deskplan.db"), &logger)
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "", discard())
	storeContract(t, s)

	assert.True(t, mr.Exists(DefaultRedisKey))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "f.json"), []byte("x"), 0o644)
	assert.Error(t, err)
}
