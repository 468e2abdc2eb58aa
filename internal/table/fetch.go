// Package table retrieves the raw duty roster as rows of text cells, from
// either an HTTP(S) URL (e.g. a published spreadsheet CSV export) or a
// local CSV file.
package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "dutycal/internal/log"
)

// ErrNoData indicates the source was readable but contained zero rows.
var ErrNoData = errors.New("no data in table")

// FetchError wraps any failure to produce a raw table from a source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", RedactSource(e.Source), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves CSV tables. Network sources get a single attempt with
// a bounded timeout; redirects are followed (published sheet exports
// typically redirect at least once).
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a new table Fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch reads the source and decodes it as CSV. Rows may be ragged; no
// structural validation beyond "at least one row" happens here.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([][]string, error) {
	if source == "" {
		return nil, &FetchError{Source: source, Err: errors.New("source is empty")}
	}

	var (
		rows [][]string
		err  error
	)
	if isURL(source) {
		rows, err = f.fetchURL(ctx, source)
	} else {
		rows, err = readFile(source)
	}
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}

	if len(rows) == 0 {
		return nil, &FetchError{Source: source, Err: ErrNoData}
	}

	appLog.Info("table fetched", "source", RedactSource(source), "rows", len(rows))
	return rows, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	appLog.Debug("table fetch start", "url", RedactSource(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return decodeCSV(resp.Body)
}

func readFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeCSV(file)
}

func decodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	// Duty rosters routinely have ragged rows; accept any field count.
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return rows, nil
}

// RedactSource hides the path and query of a URL for logging purposes, so
// tokens embedded in published-sheet links do not leak into logs. Local
// paths are returned unchanged.
func RedactSource(source string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(source, "://")
	if i == -1 {
		return source
	}

	j := strings.IndexByte(source[i+3:], '/')
	if j == -1 {
		return source
	}

	return source[:i+3+j] + redactedSuffix
}
