package models

import (
	"fmt"
	"strings"
	"time"
)

// AttendanceDateLayout is the canonical stored form of an attendance date.
const AttendanceDateLayout = "02/01/2006"

var acceptedDateLayouts = []string{AttendanceDateLayout, "2006-01-02"}

// AttendanceRecord is evidence that a student was present on a date.
type AttendanceRecord struct {
	ID        int64     `db:"id" json:"id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	Date      string    `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PresenceResult reports the outcome of marking one student present.
type PresenceResult struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Created   bool   `json:"created"`
}

// ClassPresenceResult summarises a class roll call.
type ClassPresenceResult struct {
	ClassName string `json:"class_name"`
	Date      string `json:"date"`
	Submitted int    `json:"submitted"`
	Created   int    `json:"created"`
}

// RosterEntry is one line of the take-attendance screen.
type RosterEntry struct {
	StudentID int64  `db:"student_id" json:"student_id"`
	Name      string `db:"name" json:"name"`
	Present   bool   `db:"present" json:"present"`
}

// NormalizeAttendanceDate accepts DD/MM/YYYY or YYYY-MM-DD and returns the DD/MM/YYYY form.
func NormalizeAttendanceDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(AttendanceDateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q: expected DD/MM/YYYY or YYYY-MM-DD", raw)
}

// FormatAttendanceDate renders t in the canonical stored form.
func FormatAttendanceDate(t time.Time) string {
	return t.Format(AttendanceDateLayout)
}
