package ics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutycal/internal/duty"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		WeekdayStart:    "17:00",
		WeekdayEnd:      "08:00",
		WeekendStart:    "08:00",
		WeekendEnd:      "08:00",
		OutputDir:       t.TempDir(),
		FilenamePattern: "duty_{char}_{location}.ics",
		Timezone:        "Asia/Taipei",
		Templates: Templates{
			Title:            "{person} roster ({location})",
			EventTitle:       "{person} {duty_type} {location}",
			EventDescription: "{person} on {date} {start_time}-{end_time}",
			AlarmMessage:     "{person} {duty_type} soon",
		},
		DutyTypes: DutyTypes{Weekday: "weekday duty", Weekend: "weekend duty"},
	}
}

func date(day int) time.Time {
	return time.Date(2026, time.September, day, 0, 0, 0, 0, time.UTC)
}

func TestGenerate(t *testing.T) {
	opts := testOptions(t)
	gen, err := NewGenerator(opts)
	require.NoError(t, err)

	path, err := gen.Generate("a", []duty.DutyDate{
		{Date: date(7), Weekend: false, Location: "Ward1"}, // Monday
		{Date: date(5), Weekend: true, Location: "Ward1"},  // Saturday
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.OutputDir, "duty_a_Ward1.ics"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "PRODID:-//dutycal//dutycal.ics//EN")
	assert.Contains(t, text, "VERSION:2.0")
	assert.Contains(t, text, "CALSCALE:GREGORIAN")
	assert.Contains(t, text, "X-WR-CALNAME:A roster (Ward1)")
	assert.Contains(t, text, "X-WR-TIMEZONE:Asia/Taipei")

	// Weekday duty: 17:00 Asia/Taipei on the 7th to 08:00 the next day.
	assert.Contains(t, text, "SUMMARY:A weekday duty Ward1")
	assert.Contains(t, text, "DTSTART:20260907T090000Z")
	assert.Contains(t, text, "DTEND:20260908T000000Z")

	// Weekend duty: 08:00 to 08:00 the next day.
	assert.Contains(t, text, "SUMMARY:A weekend duty Ward1")
	assert.Contains(t, text, "DTSTART:20260905T000000Z")
	assert.Contains(t, text, "DTEND:20260906T000000Z")

	// Reminder 30 minutes before start.
	assert.Contains(t, text, "BEGIN:VALARM")
	assert.Contains(t, text, "ACTION:DISPLAY")
	assert.Contains(t, text, "TRIGGER:-PT30M")
	assert.Contains(t, text, "DESCRIPTION:A weekday duty soon")
}

func TestGenerateStripsLocationWhitespaceInFilename(t *testing.T) {
	opts := testOptions(t)
	gen, err := NewGenerator(opts)
	require.NoError(t, err)

	path, err := gen.Generate("b", []duty.DutyDate{
		{Date: date(1), Location: "North  Ward 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "duty_b_NorthWard2.ics", filepath.Base(path))
}

func TestGenerateUnresolvedPlaceholder(t *testing.T) {
	opts := testOptions(t)
	opts.Templates.EventTitle = "{person} {shift_name}"
	gen, err := NewGenerator(opts)
	require.NoError(t, err)

	_, err = gen.Generate("a", []duty.DutyDate{{Date: date(1), Location: "Ward1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved placeholder {shift_name}")

	// Nothing written for the failed artifact.
	entries, readErr := os.ReadDir(opts.OutputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestGenerateNoDuties(t *testing.T) {
	gen, err := NewGenerator(testOptions(t))
	require.NoError(t, err)

	_, err = gen.Generate("a", nil)
	assert.Error(t, err)
}

func TestNewGeneratorBadClock(t *testing.T) {
	opts := testOptions(t)
	opts.WeekendEnd = "8 o'clock"

	_, err := NewGenerator(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekend end")
}

func TestNewGeneratorBadTimezone(t *testing.T) {
	opts := testOptions(t)
	opts.Timezone = "Mars/Olympus"

	_, err := NewGenerator(opts)
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("{a} and {b}", map[string]string{"a": "x", "b": "y"})
	require.NoError(t, err)
	assert.Equal(t, "x and y", out)

	out, err = RenderTemplate("no placeholders", nil)
	require.NoError(t, err)
	assert.Equal(t, "no placeholders", out)

	_, err = RenderTemplate("{missing}", map[string]string{"a": "x"})
	assert.Error(t, err)
}

func TestPrimaryLocation(t *testing.T) {
	duties := []duty.DutyDate{
		{Date: date(1), Location: "ICU"},
		{Date: date(2), Location: "Ward1"},
		{Date: date(3), Location: "Ward1"},
	}
	assert.Equal(t, "Ward1", primaryLocation(duties))

	// Ties break toward the earliest-seen location.
	assert.Equal(t, "ICU", primaryLocation(duties[:2]))
}
