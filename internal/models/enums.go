package models

// BookingType selects how a desk is reserved.
type BookingType string

const (
	TypeSchedule    BookingType = "schedule"
	TypeFullBooking BookingType = "fullbooking"
	TypeProject     BookingType = "projekt"
)

// BookingTypes lists the valid booking types in display order.
var BookingTypes = []BookingType{TypeSchedule, TypeFullBooking, TypeProject}

func (t BookingType) Valid() bool {
	switch t {
	case TypeSchedule, TypeFullBooking, TypeProject:
		return true
	}
	return false
}

// Label is the human readable name of the booking type.
func (t BookingType) Label() string {
	switch t {
	case TypeSchedule:
		return "Schedule"
	case TypeFullBooking:
		return "Full Booking"
	case TypeProject:
		return "Project"
	}
	return string(t)
}

// ComputerKind describes the computer installed at a desk.
type ComputerKind string

const (
	ComputerGPU  ComputerKind = "GPU"
	ComputerCPU  ComputerKind = "CPU"
	ComputerNone ComputerKind = "None"
)

var ComputerKinds = []ComputerKind{ComputerGPU, ComputerCPU, ComputerNone}

func (k ComputerKind) Valid() bool {
	switch k {
	case ComputerGPU, ComputerCPU, ComputerNone:
		return true
	}
	return false
}

// ComputerMode is the operating mode requested with a timetable booking.
type ComputerMode string

const (
	ModeScreensOnly    ComputerMode = "Screens Only"
	ModeComputerActive ComputerMode = "Computer Active (Shutdownable)"
	ModeTrainingMode   ComputerMode = "Training Mode (Not Shutdownable)"
	ModeNoComputer     ComputerMode = "No Computer"
)

// ComputerModes lists the modes selectable on a desk that has a computer.
var ComputerModes = []ComputerMode{ModeScreensOnly, ModeComputerActive, ModeTrainingMode}

func (m ComputerMode) Valid() bool {
	switch m {
	case ModeScreensOnly, ModeComputerActive, ModeTrainingMode, ModeNoComputer:
		return true
	}
	return false
}

// Weekday names a day of the recurring week.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// AllWeekdays is used for display grids.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// BookableWeekdays are the days on which bookings can be created.
var BookableWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Index returns the position of the day within the week, or -1.
func (d Weekday) Index() int {
	for i, w := range AllWeekdays {
		if w == d {
			return i
		}
	}
	return -1
}

func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

func (d Weekday) Bookable() bool {
	i := d.Index()
	return i >= 0 && i < len(BookableWeekdays)
}

// MaxScreens is the largest number of screens a desk can carry.
const MaxScreens = 2
