package value

import (
	"fmt"
	"time"
)

// Date is a calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Time is a time of day with millisecond precision.
type Time struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// DateTime is a Date and a Time.
type DateTime struct {
	Date
	Time
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

func (dt DateTime) String() string {
	return dt.Date.String() + "T" + dt.Time.String()
}

// GoTime returns dt as a time.Time in loc. A nil loc means UTC.
func (dt DateTime) GoTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day,
		dt.Hour, dt.Minute, dt.Second, dt.Millisecond*int(time.Millisecond), loc)
}

// DateTimeFromTime splits t into its wall-clock date and time fields.
// Sub-millisecond precision is truncated.
func DateTimeFromTime(t time.Time) DateTime {
	return DateTime{
		Date: Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()},
		Time: Time{
			Hour:        t.Hour(),
			Minute:      t.Minute(),
			Second:      t.Second(),
			Millisecond: t.Nanosecond() / int(time.Millisecond),
		},
	}
}
