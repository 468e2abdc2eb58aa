// Package ics renders duty dates into iCalendar artifacts, one file per
// (occupant, location) pair.
package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"dutycal/internal/duty"
	appLog "dutycal/internal/log"
)

const prodID = "-//dutycal//dutycal.ics//EN"

// Templates holds the calendar/event template strings. Placeholders use
// the {name} form; see RenderTemplate for the substitution rules.
type Templates struct {
	Title            string
	EventTitle       string
	EventDescription string
	AlarmMessage     string
}

// DutyTypes holds the localized labels substituted for {duty_type}.
type DutyTypes struct {
	Weekday string
	Weekend string
}

// Options configures a Generator.
type Options struct {
	WeekdayStart string // "HH:MM" on the duty date
	WeekdayEnd   string // "HH:MM" on the following day
	WeekendStart string
	WeekendEnd   string

	OutputDir       string
	FilenamePattern string // recognizes {char} and {location}
	Timezone        string // IANA zone for event wall-clock times

	Templates Templates
	DutyTypes DutyTypes
}

type clockTime struct {
	hour, minute int
}

// Generator writes one ICS artifact per call to Generate.
type Generator struct {
	weekdayStart clockTime
	weekdayEnd   clockTime
	weekendStart clockTime
	weekendEnd   clockTime

	outputDir       string
	filenamePattern string
	timezone        string
	loc             *time.Location

	templates Templates
	dutyTypes DutyTypes
}

// NewGenerator validates the options, resolves the timezone, and ensures
// the output directory exists.
func NewGenerator(opts Options) (*Generator, error) {
	g := &Generator{
		outputDir:       opts.OutputDir,
		filenamePattern: opts.FilenamePattern,
		timezone:        opts.Timezone,
		templates:       opts.Templates,
		dutyTypes:       opts.DutyTypes,
	}

	var err error
	if g.weekdayStart, err = parseClock(opts.WeekdayStart); err != nil {
		return nil, fmt.Errorf("weekday start: %w", err)
	}
	if g.weekdayEnd, err = parseClock(opts.WeekdayEnd); err != nil {
		return nil, fmt.Errorf("weekday end: %w", err)
	}
	if g.weekendStart, err = parseClock(opts.WeekendStart); err != nil {
		return nil, fmt.Errorf("weekend start: %w", err)
	}
	if g.weekendEnd, err = parseClock(opts.WeekendEnd); err != nil {
		return nil, fmt.Errorf("weekend end: %w", err)
	}

	if g.loc, err = time.LoadLocation(opts.Timezone); err != nil {
		return nil, fmt.Errorf("timezone %q: %w", opts.Timezone, err)
	}

	if g.outputDir == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, err
	}

	return g, nil
}

func parseClock(s string) (clockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return clockTime{}, fmt.Errorf("%q is not a valid HH:MM time", s)
	}
	return clockTime{hour: t.Hour(), minute: t.Minute()}, nil
}

// Generate writes one artifact for occupant with the given duty dates.
// The caller partitions duties by location beforehand, so all entries
// share one location; the calendar title still uses the most frequent
// location for robustness. Returns the written file path.
func (g *Generator) Generate(occupant string, duties []duty.DutyDate) (string, error) {
	if len(duties) == 0 {
		return "", errors.New("no duty dates")
	}

	primary := primaryLocation(duties)

	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	title, err := RenderTemplate(g.templates.Title, map[string]string{
		"person":   strings.ToUpper(occupant),
		"location": primary,
	})
	if err != nil {
		return "", fmt.Errorf("title template: %w", err)
	}
	cal.SetXWRCalName(title)
	cal.SetXWRTimezone(g.timezone)

	for i, d := range duties {
		if err := g.addEvent(cal, occupant, d, i); err != nil {
			return "", err
		}
	}

	filename, err := RenderTemplate(g.filenamePattern, map[string]string{
		"char":     occupant,
		"location": stripSpace(primary),
	})
	if err != nil {
		return "", fmt.Errorf("filename pattern: %w", err)
	}
	path := filepath.Join(g.outputDir, filename)

	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return "", err
	}

	appLog.Debug("artifact written", "occupant", occupant, "location", primary, "path", path, "events", len(duties))
	return path, nil
}

func (g *Generator) addEvent(cal *ical.Calendar, occupant string, d duty.DutyDate, seq int) error {
	start, end := g.span(d)

	dutyType := g.dutyTypes.Weekday
	if d.Weekend {
		dutyType = g.dutyTypes.Weekend
	}

	vars := map[string]string{
		"person":     strings.ToUpper(occupant),
		"location":   d.Location,
		"duty_type":  dutyType,
		"date":       d.Date.Format("2006-01-02"),
		"start_time": start.Format("15:04"),
		"end_time":   end.Format("15:04"),
	}

	summary, err := RenderTemplate(g.templates.EventTitle, vars)
	if err != nil {
		return fmt.Errorf("event title template: %w", err)
	}
	description, err := RenderTemplate(g.templates.EventDescription, vars)
	if err != nil {
		return fmt.Errorf("event description template: %w", err)
	}
	alarmMessage, err := RenderTemplate(g.templates.AlarmMessage, vars)
	if err != nil {
		return fmt.Errorf("alarm message template: %w", err)
	}

	uid := fmt.Sprintf("%s-%s-%d@dutycal", occupant, d.Date.Format("20060102"), seq)
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(time.Now())
	ev.SetSummary(summary)
	ev.SetDescription(description)
	ev.SetLocation(d.Location)
	ev.SetStartAt(start)
	ev.SetEndAt(end)

	// Display reminder 30 minutes before the shift starts.
	alarm := ev.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetTrigger("-PT30M")
	alarm.SetProperty(ical.ComponentPropertyDescription, alarmMessage)

	return nil
}

// span computes the event interval: start clock time on the duty date to
// end clock time on the following calendar day, in the configured zone.
func (g *Generator) span(d duty.DutyDate) (time.Time, time.Time) {
	startClock, endClock := g.weekdayStart, g.weekdayEnd
	if d.Weekend {
		startClock, endClock = g.weekendStart, g.weekendEnd
	}

	y, m, day := d.Date.Date()
	start := time.Date(y, m, day, startClock.hour, startClock.minute, 0, 0, g.loc)
	next := d.Date.AddDate(0, 0, 1)
	ny, nm, nd := next.Date()
	end := time.Date(ny, nm, nd, endClock.hour, endClock.minute, 0, 0, g.loc)
	return start, end
}

// primaryLocation returns the most frequent location among duties. With
// per-location partitioning upstream this degenerates to the single
// location present; ties break toward the earliest-seen location.
func primaryLocation(duties []duty.DutyDate) string {
	counts := make(map[string]int)
	var (
		best      string
		bestCount int
	)
	for _, d := range duties {
		counts[d.Location]++
		if counts[d.Location] > bestCount {
			best = d.Location
			bestCount = counts[d.Location]
		}
	}
	return best
}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// RenderTemplate substitutes {name} placeholders from vars. Any
// placeholder left unresolved after substitution is an error, so a typo
// in a configured template fails that artifact instead of leaking braces
// into calendar text.
func RenderTemplate(tmpl string, vars map[string]string) (string, error) {
	out := tmpl
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	if leftover := placeholderPattern.FindString(out); leftover != "" {
		return "", fmt.Errorf("unresolved placeholder %s in template %q", leftover, tmpl)
	}
	return out, nil
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
