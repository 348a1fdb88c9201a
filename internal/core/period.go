package core

import "fmt"

// YearRange is an inclusive range of years.
type YearRange struct {
	Lo int
	Hi int
}

func (r YearRange) Valid() bool { return r.Lo <= r.Hi }

// Len is the number of years covered, or 0 for an inverted range.
func (r YearRange) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.Hi - r.Lo + 1
}

func (r YearRange) Contains(year int) bool { return year >= r.Lo && year <= r.Hi }

func (r YearRange) String() string { return fmt.Sprintf("%d-%d", r.Lo, r.Hi) }

// Span returns the smallest range covering every record's year.
// ok is false when records is empty.
func Span(records []Record) (r YearRange, ok bool) {
	for i, rec := range records {
		if i == 0 || rec.Year < r.Lo {
			r.Lo = rec.Year
		}
		if i == 0 || rec.Year > r.Hi {
			r.Hi = rec.Year
		}
	}
	return r, len(records) > 0
}
