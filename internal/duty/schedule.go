package duty

import "time"

// Assignment is a single parsed duty marker: occupant X covers Day at
// Location. RowIndex records which (filtered) table row produced it.
// Immutable once created.
type Assignment struct {
	Day      int
	Location string
	RowIndex int
}

// DutyDate is an Assignment materialized into a real calendar date with
// its weekday/weekend classification.
type DutyDate struct {
	Date     time.Time
	Weekend  bool
	Location string
}

// Schedule maps occupant codes to their assignments, preserving the order
// in which occupants were first seen during the table scan. Built
// incrementally by the parser; read-only afterwards.
type Schedule struct {
	order      []string
	byOccupant map[string][]Assignment
}

func newSchedule() *Schedule {
	return &Schedule{byOccupant: make(map[string][]Assignment)}
}

func (s *Schedule) add(occupant string, a Assignment) {
	if _, ok := s.byOccupant[occupant]; !ok {
		s.order = append(s.order, occupant)
	}
	s.byOccupant[occupant] = append(s.byOccupant[occupant], a)
}

// People returns the occupant codes in first-seen scan order.
func (s *Schedule) People() []string {
	return s.order
}

// Assignments returns the assignments for one occupant in scan order.
func (s *Schedule) Assignments(occupant string) []Assignment {
	return s.byOccupant[occupant]
}

// Len returns the number of distinct occupants.
func (s *Schedule) Len() int {
	return len(s.order)
}

// LocationDuties is one location's slice of an occupant's duty dates.
type LocationDuties struct {
	Location string
	Duties   []DutyDate
}

// GroupByLocation partitions duty dates by location, locations ordered by
// first encounter so downstream iteration stays deterministic.
func GroupByLocation(dates []DutyDate) []LocationDuties {
	var order []string
	byLocation := make(map[string][]DutyDate)

	for _, d := range dates {
		if _, ok := byLocation[d.Location]; !ok {
			order = append(order, d.Location)
		}
		byLocation[d.Location] = append(byLocation[d.Location], d)
	}

	out := make([]LocationDuties, 0, len(order))
	for _, loc := range order {
		out = append(out, LocationDuties{Location: loc, Duties: byLocation[loc]})
	}
	return out
}
