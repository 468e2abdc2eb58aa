// Package duty maps a raw roster table to per-occupant duty assignments
// and materializes them into classified calendar dates.
package duty

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Orientation controls how grid positions map to days of the month.
type Orientation string

const (
	// OrientationColumns treats each column as a day-of-month; every cell
	// in that column is one occupant's possible duty marker for that day.
	OrientationColumns Orientation = "columns"
	// OrientationRows treats each row as a day-of-month and each column
	// within it as a separate ward/location.
	OrientationRows Orientation = "rows"
)

var (
	// ErrEmptyTable indicates the table had zero rows.
	ErrEmptyTable = errors.New("table is empty")
	// ErrNoRows indicates every row was blank (columns orientation only).
	ErrNoRows = errors.New("no populated rows in table")
)

// occupantSeparators matches any run of characters treated as splitting a
// shared duty cell into individual occupants ("a/b", "a,b", "a b", ...).
var occupantSeparators = regexp.MustCompile(`[/,\s&+\-]+`)

// Locations resolves a table column to a location label.
type Locations struct {
	// Default is used for columns with no explicit override.
	Default string
	// ByColumn maps a zero-based column index to a location label.
	ByColumn map[int]string
}

// ForColumn returns the label configured for col, or the default.
func (l Locations) ForColumn(col int) string {
	if label, ok := l.ByColumn[col]; ok {
		return label
	}
	return l.Default
}

// Parser converts a raw table into a Schedule for one target month.
type Parser struct {
	year      int
	month     int
	locations Locations
	orient    Orientation
	loc       *time.Location
}

// NewParser creates a Parser for (year, month). Dates are materialized in
// tz; a nil tz falls back to time.Local.
func NewParser(year, month int, locations Locations, orient Orientation, tz *time.Location) *Parser {
	if orient == "" {
		orient = OrientationColumns
	}
	if tz == nil {
		tz = time.Local
	}
	return &Parser{
		year:      year,
		month:     month,
		locations: locations,
		orient:    orient,
		loc:       tz,
	}
}

// Parse scans the table and returns the duty schedule.
//
// Columns orientation first drops fully-blank rows, so RowIndex counts
// only populated rows; the day is derived from the column index alone.
// Rows orientation keeps every row, because the row's absolute position
// is the day.
func (p *Parser) Parse(rows [][]string) (*Schedule, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	schedule := newSchedule()

	if p.orient == OrientationRows {
		p.parseRowPerDay(rows, schedule)
		return schedule, nil
	}

	populated := filterBlankRows(rows)
	if len(populated) == 0 {
		return nil, ErrNoRows
	}
	p.parseColumnPerDay(populated, schedule)
	return schedule, nil
}

func (p *Parser) parseColumnPerDay(rows [][]string, schedule *Schedule) {
	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			day := colIdx + 1
			if day > 31 {
				continue
			}
			p.collect(schedule, cell, day, colIdx, rowIdx)
		}
	}
}

func (p *Parser) parseRowPerDay(rows [][]string, schedule *Schedule) {
	for rowIdx, row := range rows {
		day := rowIdx + 1
		if day > 31 {
			continue
		}
		for colIdx, cell := range row {
			p.collect(schedule, cell, day, colIdx, rowIdx)
		}
	}
}

// collect appends one Assignment per occupant found in cell.
func (p *Parser) collect(schedule *Schedule, cell string, day, colIdx, rowIdx int) {
	occupants := splitOccupants(cell)
	if len(occupants) == 0 {
		return
	}

	location := p.locations.ForColumn(colIdx)
	for _, occupant := range occupants {
		schedule.add(occupant, Assignment{
			Day:      day,
			Location: location,
			RowIndex: rowIdx,
		})
	}
}

// splitOccupants extracts normalized occupant codes from a cell. The cell
// is split on separator runs; each fragment contributes its first
// alphabetic character, lowercased. Fragments without letters contribute
// nothing, and duplicate codes within one cell are collapsed keeping
// first-seen order.
func splitOccupants(cell string) []string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" || !containsAlpha(trimmed) {
		return nil
	}

	var (
		codes []string
		seen  = make(map[string]bool)
	)
	for _, part := range occupantSeparators.Split(trimmed, -1) {
		code, ok := firstAlpha(part)
		if !ok {
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

func containsAlpha(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func firstAlpha(s string) (string, bool) {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return string(unicode.ToLower(r)), true
		}
	}
	return "", false
}

func filterBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !rowBlank(row) {
			out = append(out, row)
		}
	}
	return out
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// IsWeekend reports whether day falls on a Saturday or Sunday of the
// target month. Days that do not exist in the month classify as false;
// date validity is checked separately by DutyDates.
func (p *Parser) IsWeekend(day int) bool {
	if !p.dayInMonth(day) {
		return false
	}
	wd := time.Date(p.year, time.Month(p.month), day, 0, 0, 0, 0, p.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DutyDates materializes assignments into classified calendar dates.
// Assignments whose day does not exist in the target month (e.g. day 30
// in February) are silently dropped; that is the boundary policy, not an
// error.
func (p *Parser) DutyDates(assignments []Assignment) []DutyDate {
	dates := make([]DutyDate, 0, len(assignments))
	for _, a := range assignments {
		if !p.dayInMonth(a.Day) {
			continue
		}
		dates = append(dates, DutyDate{
			Date:     time.Date(p.year, time.Month(p.month), a.Day, 0, 0, 0, 0, p.loc),
			Weekend:  p.IsWeekend(a.Day),
			Location: a.Location,
		})
	}
	return dates
}

// dayInMonth checks day against the real length of the target month via
// time.Date normalization: an overflowing day rolls into the next month.
func (p *Parser) dayInMonth(day int) bool {
	if day < 1 || day > 31 {
		return false
	}
	d := time.Date(p.year, time.Month(p.month), day, 0, 0, 0, 0, p.loc)
	return d.Day() == day && d.Month() == time.Month(p.month)
}
