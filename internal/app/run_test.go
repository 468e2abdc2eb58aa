package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutycal/internal/config"
	"dutycal/internal/duty"
	"dutycal/internal/table"
)

func testConfig(t *testing.T, csvContent string) *config.Config {
	t.Helper()

	source := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(source, []byte(csvContent), 0o644))

	cfg := config.DefaultConfig()
	cfg.Schedule.Year = 2026
	cfg.Schedule.Month = 9
	cfg.Schedule.Source = source
	cfg.Locations.Default = "Ward1"
	cfg.Output.Directory = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, "a,b\nb,\n")

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 2, sum.People)
	assert.Equal(t, 2, sum.Artifacts)
	assert.Equal(t, 0, sum.Failed)

	for _, name := range []string{"duty_a_Ward1.ics", "duty_b_Ward1.ics"} {
		body, readErr := os.ReadFile(filepath.Join(cfg.Output.Directory, name))
		require.NoError(t, readErr, name)
		assert.Contains(t, string(body), "BEGIN:VEVENT")
	}
}

func TestRunPerArtifactFailureContinues(t *testing.T) {
	cfg := testConfig(t, "a,b\n")
	cfg.Calendar.EventTitleTemplate = "{bogus}"

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Artifacts)
	assert.Equal(t, 2, sum.Failed)
}

func TestRunFetchFailure(t *testing.T) {
	cfg := testConfig(t, "a\n")
	cfg.Schedule.Source = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Run(context.Background(), cfg)
	var fetchErr *table.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestRunParseFailure(t *testing.T) {
	// Rows exist but every cell is blank: a parse error, not a fetch error.
	cfg := testConfig(t, " , \n , \n")

	_, err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, duty.ErrNoRows)
}
