package models

// Slot is a fixed-duration candidate booking interval derived from an
// availability window.
type Slot struct {
	StartTime string `json:"startTime"` // "HH:MM"
	EndTime   string `json:"endTime"`   // "HH:MM"
	Available bool   `json:"available"`
}

// DaySchedule is one day of a practitioner's slot grid. A day with no
// bookable time carries an empty slot list.
type DaySchedule struct {
	Date  string `json:"date"` // "YYYY-MM-DD"
	Slots []Slot `json:"slots"`
}
