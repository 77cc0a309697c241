// package formatter renders fill results and journal entries (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
	"github.com/desertthunder/plbop/internal/tasks"
)

// Format is an output format for a fill result.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat resolves a --format value. Empty means text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use txt, md, csv or json)", shared.ErrInvalidFlag, name)
	}
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-:--"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// TrackURI returns the spotify:track: URI for a track ID.
func TrackURI(id string) string {
	return "spotify:track:" + id
}

// Render converts result to the given format.
func Render(result *tasks.FillResult, format Format) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", shared.ErrInvalidInput)
	}

	switch format {
	case FormatText, "":
		return ToText(result)
	case FormatMarkdown:
		return ToMarkdown(result)
	case FormatCSV:
		return ToCSV(result)
	case FormatJSON:
		return shared.MarshalJSON(result, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ToCSV converts the final track list to CSV with columns: Position, ID, Title, Artist, Duration, URI
func ToCSV(result *tasks.FillResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Title,
			track.Artist,
			strconv.Itoa(track.Duration),
			TrackURI(track.ID),
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

// ToMarkdown converts a fill result to a Markdown report
func ToMarkdown(result *tasks.FillResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(result))
	fmt.Fprintf(&buf, "**User**: %s\n", result.UserID)
	fmt.Fprintf(&buf, "**Destination**: %s\n", destination(result))
	fmt.Fprintf(&buf, "**Seeds**: %d read, %d sampled, %d requests\n", result.SeedCount, result.SampledCount, result.ChunkCount)
	fmt.Fprintf(&buf, "**Recommended**: %d, **Known**: %d removed, **Selected**: %d\n\n",
		len(result.Recommended), len(result.Removed), len(result.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, FormatDuration(track.Duration))
	}

	if len(result.Removed) > 0 {
		buf.WriteString("\n## Already Known\n\n")
		for _, track := range result.Removed {
			fmt.Fprintf(&buf, "- %s - %s\n", track.Artist, track.Title)
		}
	}

	return buf.Bytes(), nil
}

// ToText converts a fill result to plain text format
func ToText(result *tasks.FillResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title(result))
	fmt.Fprintf(&buf, "Destination: %s\n", destination(result))
	fmt.Fprintf(&buf, "Recommended: %d  Removed: %d  Selected: %d\n\n",
		len(result.Recommended), len(result.Removed), len(result.Tracks))

	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// WriteExport renders result and writes it to path.
//
// Defaults to plbop_{seed}.{format} as the filename.
func WriteExport(result *tasks.FillResult, format Format, path string) (string, error) {
	data, err := Render(result, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if path == "" {
		seed := "result"
		if result.SeedPlaylist != nil {
			seed = result.SeedPlaylist.ID
		}
		path = fmt.Sprintf("plbop_%s.%s", seed, format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// RunsToText renders journal entries as an aligned table, newest first.
func RunsToText(runs []*models.FillRun) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "#\tSTARTED\tSTATUS\tSEED\tDESTINATION\tRECOMMENDED\tREMOVED\tWRITTEN")
	for _, run := range runs {
		dest := run.DestPlaylistID()
		if run.DryRun() {
			dest = "(dry run)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.Sequence(),
			run.StartedAt().Local().Format(time.DateTime),
			run.Status(),
			run.SeedPlaylistID(),
			dest,
			run.RecommendedCount(),
			run.RemovedCount(),
			run.WrittenCount(),
		)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}
	return buf.Bytes(), nil
}

// runJSON is the serialized form of a journal entry.
type runJSON struct {
	ID               string         `json:"id"`
	Sequence         int            `json:"sequence"`
	UserID           string         `json:"user_id"`
	SeedPlaylistID   string         `json:"seed_playlist_id"`
	DestPlaylistID   string         `json:"dest_playlist_id,omitempty"`
	Status           string         `json:"status"`
	DryRun           bool           `json:"dry_run"`
	SeedCount        int            `json:"seed_count"`
	RecommendedCount int            `json:"recommended_count"`
	RemovedCount     int            `json:"removed_count"`
	WrittenCount     int            `json:"written_count"`
	Error            string         `json:"error,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Tracks           []models.Track `json:"tracks,omitempty"`
}

// RunsToJSON renders journal entries as a JSON array.
func RunsToJSON(runs []*models.FillRun) ([]byte, error) {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:               run.ID(),
			Sequence:         run.Sequence(),
			UserID:           run.UserID(),
			SeedPlaylistID:   run.SeedPlaylistID(),
			DestPlaylistID:   run.DestPlaylistID(),
			Status:           string(run.Status()),
			DryRun:           run.DryRun(),
			SeedCount:        run.SeedCount(),
			RecommendedCount: run.RecommendedCount(),
			RemovedCount:     run.RemovedCount(),
			WrittenCount:     run.WrittenCount(),
			Error:            run.ErrorMessage(),
			StartedAt:        run.StartedAt(),
			CompletedAt:      run.CompletedAt(),
			Tracks:           run.Tracks(),
		})
	}
	return shared.MarshalJSON(out, true)
}

func title(result *tasks.FillResult) string {
	if result.SeedPlaylist != nil && result.SeedPlaylist.Name != "" {
		return fmt.Sprintf("Recommendations from %s", result.SeedPlaylist.Name)
	}
	return "Recommendations"
}

func destination(result *tasks.FillResult) string {
	if result.DryRun {
		return "(dry run, nothing written)"
	}
	return result.DestPlaylistID
}
