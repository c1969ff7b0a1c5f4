// package formatter provides functions to export run reports to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/shared"
)

// Formats lists the supported report formats.
var Formats = []string{"csv", "markdown", "txt", "json"}

// ExportToCSV converts a RunResult to CSV format with columns: #, Key, Status, Source, Path, Error
func ExportToCSV(result *models.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"#", "Key", "Status", "Source", "Path", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, o := range result.Outcomes {
		record := []string{
			fmt.Sprint(i + 1),
			o.Key,
			string(o.Status),
			o.Source,
			o.Path,
			o.Error(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a RunResult to a Markdown report grouped by status
func ExportToMarkdown(result *models.RunResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Playlist %s\n\n", result.PlaylistID)
	fmt.Fprintf(&buf, "**Run**: %s\n", result.RunID)
	if !result.StartedAt.IsZero() {
		fmt.Fprintf(&buf, "**Started**: %s\n", result.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", FormatDuration(result.Duration()))

	buf.WriteString("| Status | Count |\n|---|---|\n")
	counts := result.Counts()
	for _, s := range models.Statuses {
		fmt.Fprintf(&buf, "| %s | %d |\n", s, counts[s])
	}

	for _, s := range models.Statuses {
		if counts[s] == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n## %s\n\n", s)
		n := 0
		for _, o := range result.Outcomes {
			if o.Status != s {
				continue
			}
			n++
			line := fmt.Sprintf("%d. %s", n, o.Key)
			switch {
			case o.Err != nil:
				line += fmt.Sprintf(" (%s)", o.Error())
			case o.Source != "":
				line += fmt.Sprintf(" [source](%s)", o.Source)
			}
			buf.WriteString(line + "\n")
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a RunResult to plain text format
func ExportToText(result *models.RunResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", result.PlaylistID)
	fmt.Fprintf(&buf, "Run: %s\n", result.RunID)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(result.Outcomes))

	for i, o := range result.Outcomes {
		fmt.Fprintf(&buf, "%d. [%s] %s\n", i+1, o.Status, o.Key)
	}

	return buf.Bytes(), nil
}

type jsonOutcome struct {
	Key    string        `json:"key"`
	Track  models.Track  `json:"track"`
	Status models.Status `json:"status"`
	Source string        `json:"source,omitempty"`
	Path   string        `json:"path,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type jsonReport struct {
	RunID      string                `json:"run_id"`
	PlaylistID string                `json:"playlist_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Counts     map[models.Status]int `json:"counts"`
	Outcomes   []jsonOutcome         `json:"outcomes"`
}

// ExportToJSON converts a RunResult to pretty-printed JSON including error messages
func ExportToJSON(result *models.RunResult) ([]byte, error) {
	report := jsonReport{
		RunID:      result.RunID,
		PlaylistID: result.PlaylistID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Counts:     result.Counts(),
		Outcomes:   make([]jsonOutcome, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		report.Outcomes = append(report.Outcomes, jsonOutcome{
			Key: o.Key, Track: o.Track, Status: o.Status, Source: o.Source, Path: o.Path, Error: o.Error(),
		})
	}
	return shared.MarshalJSON(report, true)
}

// Supported reports whether format names a known report format.
func Supported(format string) error {
	switch strings.ToLower(format) {
	case "csv", "markdown", "md", "txt", "text", "json":
		return nil
	}
	return fmt.Errorf("%w: unknown report format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
}

// Export renders result in the named format.
func Export(result *models.RunResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(result)
	case "markdown", "md":
		return ExportToMarkdown(result)
	case "txt", "text":
		return ExportToText(result)
	case "json":
		return ExportToJSON(result)
	default:
		return nil, Supported(format)
	}
}

// WriteReport renders result and writes it to path.
//
// Defaults to {playlist_id}_report.{format} when path is empty.
func WriteReport(result *models.RunResult, format, path string) (string, error) {
	data, err := Export(result, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_report.%s", result.PlaylistID, extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write report: %v", shared.ErrFilesystem, err)
	}
	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return "md"
	case "text":
		return "txt"
	default:
		return strings.ToLower(format)
	}
}

// FormatDuration renders d as h:mm:ss or m:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
