package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	rec := DocumentRecord{Desks: map[string]DeskRecord{
		"1": {
			Type:     "stundenplan",
			Computer: ComputerRecord{Kind: "Leer"},
			Bookings: map[string]BookingRecord{
				"a": {Day: "Freitag", Mode: "Trainings-Modus (nicht abschaltbar)"},
				"b": {Day: "Sonntag", Mode: "Rechner aktiv (abschaltbar)"},
				"c": {Day: "Monday", Mode: "ScreensOnly"},
			},
		},
		"2": {Type: "vollbuchung", Computer: ComputerRecord{Kind: "GPU"}},
	}}

	out := Migrate(rec)
	assert.Equal(t, CurrentSchemaVersion, out.SchemaVersion)
	assert.Equal(t, "schedule", out.Desks["1"].Type)
	assert.Equal(t, "None", out.Desks["1"].Computer.Kind)
	assert.Equal(t, "Friday", out.Desks["1"].Bookings["a"].Day)
	assert.Equal(t, "Training Mode (Not Shutdownable)", out.Desks["1"].Bookings["a"].Mode)
	assert.Equal(t, "Sunday", out.Desks["1"].Bookings["b"].Day)
	assert.Equal(t, "Computer Active (Shutdownable)", out.Desks["1"].Bookings["b"].Mode)
	assert.Equal(t, "Screens Only", out.Desks["1"].Bookings["c"].Mode)
	assert.Equal(t, "fullbooking", out.Desks["2"].Type)
	assert.Equal(t, "GPU", out.Desks["2"].Computer.Kind)

	// input is left untouched
	assert.Equal(t, "stundenplan", rec.Desks["1"].Type)
	assert.Equal(t, "Freitag", rec.Desks["1"].Bookings["a"].Day)
}

func TestMigrateIsIdempotent(t *testing.T) {
	var rec DocumentRecord
	require.NoError(t, json.Unmarshal([]byte(legacyDocument), &rec))

	once := Migrate(rec)
	twice := Migrate(once)
	assert.Equal(t, once, twice)
}

func TestUnmarshalSkipsMigrationForCurrentVersion(t *testing.T) {
	data := `{"schema_version": 2, "tische": {"1": {"typ": "schedule", "rechner": {"typ": "CPU", "vorhanden": true}, "buchungen": {}}}}`
	doc, _, err := Unmarshal([]byte(data))
	require.NoError(t, err)
	assert.True(t, doc.Desks["1"].Computer.Present)
}
