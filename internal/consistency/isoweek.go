package consistency

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// ISOWeek identifies an ISO 8601 week. Year is the ISO week-numbering year,
// which differs from the calendar year for a few days around January 1.
type ISOWeek struct {
	Year int
	Week int
}

// WeekOf returns the ISO week containing d.
func WeekOf(d civil.Date) ISOWeek {
	year, week := d.In(time.UTC).ISOWeek()
	return ISOWeek{Year: year, Week: week}
}

// WeeksInYear returns 52 or 53, the number of ISO weeks in the given ISO year.
// December 28 always falls in the last ISO week of its year.
func WeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

func (w ISOWeek) Prev() ISOWeek {
	if w.Week <= 1 {
		return ISOWeek{Year: w.Year - 1, Week: WeeksInYear(w.Year - 1)}
	}
	return ISOWeek{Year: w.Year, Week: w.Week - 1}
}

func (w ISOWeek) Next() ISOWeek {
	if w.Week >= WeeksInYear(w.Year) {
		return ISOWeek{Year: w.Year + 1, Week: 1}
	}
	return ISOWeek{Year: w.Year, Week: w.Week + 1}
}

func (w ISOWeek) Before(other ISOWeek) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Week < other.Week
}

// monday returns the first day of the week.
func (w ISOWeek) monday() civil.Date {
	// January 4 is always in week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return civil.DateOf(jan4).AddDays(-offset + (w.Week-1)*7)
}

func (w ISOWeek) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Week)
}
