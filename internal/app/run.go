// Package app wires the fetch → parse → generate pipeline so the CLI and
// watch mode share one entry point.
package app

import (
	"context"
	"fmt"
	"time"

	"dutycal/internal/config"
	"dutycal/internal/duty"
	"dutycal/internal/ics"
	appLog "dutycal/internal/log"
	"dutycal/internal/table"
)

// Summary reports what a single generation run produced.
type Summary struct {
	Rows      int
	People    int
	Artifacts int
	Failed    int
}

// Run executes one full generation pass. Fetch and parse failures abort
// the run; a failure producing one (occupant, location) artifact is logged
// and skipped so the remaining artifacts are still generated.
func Run(ctx context.Context, cfg *config.Config) (Summary, error) {
	var sum Summary

	tz, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return sum, fmt.Errorf("timezone %q: %w", cfg.Calendar.Timezone, err)
	}

	appLog.Info("generating duty schedules",
		"year", cfg.Schedule.Year,
		"month", cfg.Schedule.Month,
		"source", table.RedactSource(cfg.Schedule.Source),
		"orientation", cfg.Format.Orientation,
	)

	rows, err := table.NewFetcher().Fetch(ctx, cfg.Schedule.Source)
	if err != nil {
		return sum, err
	}
	sum.Rows = len(rows)

	parser := duty.NewParser(
		cfg.Schedule.Year,
		cfg.Schedule.Month,
		duty.Locations{
			Default:  cfg.Locations.Default,
			ByColumn: cfg.Locations.ByColumn,
		},
		duty.Orientation(cfg.Format.Orientation),
		tz,
	)

	schedule, err := parser.Parse(rows)
	if err != nil {
		return sum, fmt.Errorf("parse duty schedule: %w", err)
	}
	sum.People = schedule.Len()

	appLog.Info("duty schedule parsed", "people", schedule.Len())
	for _, person := range schedule.People() {
		assignments := schedule.Assignments(person)
		appLog.Info("duty assignments found",
			"person", person,
			"days", len(assignments),
			"locations", distinctLocations(assignments),
		)
	}

	gen, err := ics.NewGenerator(ics.Options{
		WeekdayStart:    cfg.DutyTimes.Weekday.StartTime,
		WeekdayEnd:      cfg.DutyTimes.Weekday.EndTime,
		WeekendStart:    cfg.DutyTimes.Weekend.StartTime,
		WeekendEnd:      cfg.DutyTimes.Weekend.EndTime,
		OutputDir:       cfg.Output.Directory,
		FilenamePattern: cfg.Output.FilenamePattern,
		Timezone:        cfg.Calendar.Timezone,
		Templates: ics.Templates{
			Title:            cfg.Calendar.TitleTemplate,
			EventTitle:       cfg.Calendar.EventTitleTemplate,
			EventDescription: cfg.Calendar.EventDescriptionTemplate,
			AlarmMessage:     cfg.Calendar.AlarmMessageTemplate,
		},
		DutyTypes: ics.DutyTypes{
			Weekday: cfg.DutyTypes.Weekday,
			Weekend: cfg.DutyTypes.Weekend,
		},
	})
	if err != nil {
		return sum, fmt.Errorf("init generator: %w", err)
	}

	for _, person := range schedule.People() {
		dates := parser.DutyDates(schedule.Assignments(person))
		if len(dates) == 0 {
			appLog.Info("no valid duty dates, skipping", "person", person)
			continue
		}

		for _, group := range duty.GroupByLocation(dates) {
			path, genErr := gen.Generate(person, group.Duties)
			if genErr != nil {
				sum.Failed++
				appLog.Error("artifact generation failed", genErr, "person", person, "location", group.Location)
				continue
			}
			sum.Artifacts++

			weekdays, weekends := countByType(group.Duties)
			appLog.Info("artifact generated",
				"person", person,
				"location", group.Location,
				"path", path,
				"weekday_duties", weekdays,
				"weekend_duties", weekends,
			)
		}
	}

	appLog.Info("generation complete",
		"artifacts", sum.Artifacts,
		"failed", sum.Failed,
		"output_dir", cfg.Output.Directory,
	)
	return sum, nil
}

func distinctLocations(assignments []duty.Assignment) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range assignments {
		if !seen[a.Location] {
			seen[a.Location] = true
			out = append(out, a.Location)
		}
	}
	return out
}

func countByType(duties []duty.DutyDate) (weekdays, weekends int) {
	for _, d := range duties {
		if d.Weekend {
			weekends++
		} else {
			weekdays++
		}
	}
	return weekdays, weekends
}
