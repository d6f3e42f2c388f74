package storage

var (
	legacyDeskTypes = map[string]string{
		"stundenplan": "schedule",
		"vollbuchung": "fullbooking",
		"projekt":     "projekt",
		"Schedule":    "schedule",
		"FullBooking": "fullbooking",
		"Project":     "projekt",
	}

	legacyWeekdays = map[string]string{
		"Montag":     "Monday",
		"Dienstag":   "Tuesday",
		"Mittwoch":   "Wednesday",
		"Donnerstag": "Thursday",
		"Freitag":    "Friday",
		"Samstag":    "Saturday",
		"Sonntag":    "Sunday",
	}

	legacyModes = map[string]string{
		"Nur Bildschirme":                     "Screens Only",
		"Rechner aktiv (abschaltbar)":         "Computer Active (Shutdownable)",
		"Trainings-Modus (nicht abschaltbar)": "Training Mode (Not Shutdownable)",
		"Kein Rechner":                        "No Computer",
		"ScreensOnly":                         "Screens Only",
		"ComputerActive":                      "Computer Active (Shutdownable)",
		"TrainingMode":                        "Training Mode (Not Shutdownable)",
		"NoComputer":                          "No Computer",
	}

	legacyComputerKinds = map[string]string{
		"Leer": "None",
		"":     "None",
	}
)

func translate(table map[string]string, v string) string {
	if canonical, ok := table[v]; ok {
		return canonical
	}
	return v
}

// Migrate rewrites legacy enum values of a record to their canonical
// form and stamps the current schema version. It does not modify rec
// and Migrate(Migrate(r)) equals Migrate(r).
func Migrate(rec DocumentRecord) DocumentRecord {
	out := DocumentRecord{
		SchemaVersion: CurrentSchemaVersion,
		Desks:         make(map[string]DeskRecord, len(rec.Desks)),
	}
	for id, d := range rec.Desks {
		d.Type = translate(legacyDeskTypes, d.Type)
		d.Computer.Kind = translate(legacyComputerKinds, d.Computer.Kind)
		if d.Bookings != nil {
			bookings := make(map[string]BookingRecord, len(d.Bookings))
			for bid, b := range d.Bookings {
				b.Day = translate(legacyWeekdays, b.Day)
				b.Mode = translate(legacyModes, b.Mode)
				bookings[bid] = b
			}
			d.Bookings = bookings
		}
		out.Desks[id] = d
	}
	return out
}
