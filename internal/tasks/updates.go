package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/plbop/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSeeds Phase = iota
	Recommend
	ScanKnown
	Shuffle
	Replace
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchSeeds:
		return "fetch_seeds"
	case Recommend:
		return "recommend"
	case ScanKnown:
		return "scan_known"
	case Shuffle:
		return "shuffle"
	case Replace:
		return "replace"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchSeedsUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSeeds,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching seed playlist %s...", playlistID),
	}
}

func foundSeedsUpdate(pl *models.Playlist, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSeeds,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, count),
		Data:    pl,
	}
}

func recommendUpdate(step, total int, seeds []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recommend,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Recommending from %s", step, total, strings.Join(seeds, ", ")),
	}
}

func scanPlaylistUpdate(step, total int, pl models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanKnown,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scanning %s (%d tracks)", step, total, pl.Name, pl.TrackCount),
	}
}

func removedUpdate(removed, remaining int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanKnown,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d known tracks, %d remaining", removed, remaining),
	}
}

func shuffleUpdate(count, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Shuffle,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Shuffled %d candidates, keeping at most %d", count, limit),
	}
}

func replaceUpdate(playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Replace,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Writing %d tracks to %s...", count, playlistID),
	}
}

func doneUpdate(result *FillResult) ProgressUpdate {
	msg := fmt.Sprintf("Wrote %d tracks to %s", len(result.Tracks), result.DestPlaylistID)
	if result.DryRun {
		msg = fmt.Sprintf("Dry run: %d tracks selected", len(result.Tracks))
	}
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    result,
	}
}
