package tasks

import (
	"math/rand/v2"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/plbop/internal/models"
	"github.com/samber/lo"
)

// SampleSeeds keeps the last window track IDs and returns them shuffled.
// The input slice is not modified.
func SampleSeeds(rng *rand.Rand, ids []string, window int) []string {
	start := 0
	if window > 0 && len(ids) > window {
		start = len(ids) - window
	}

	sample := make([]string, len(ids)-start)
	copy(sample, ids[start:])
	rng.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	return sample
}

// ChunkSeeds slices seeds into groups of size taken from the end, stopping after maxChunks groups.
// The last group produced may be shorter than size when seeds run out.
func ChunkSeeds(seeds []string, size, maxChunks int) [][]string {
	if size <= 0 || maxChunks <= 0 {
		return nil
	}

	var chunks [][]string
	for end := len(seeds); end > 0 && len(chunks) < maxChunks; end -= size {
		start := max(end-size, 0)
		chunks = append(chunks, seeds[start:end])
	}
	return chunks
}

// UniqueTracks drops repeated track IDs, keeping the first occurrence.
func UniqueTracks(tracks []models.Track) []models.Track {
	return lo.UniqBy(tracks, func(t models.Track) string { return t.ID })
}

// RemoveKnown splits tracks into those absent from known and those already present.
func RemoveKnown(tracks []models.Track, known mapset.Set[string]) (kept, removed []models.Track) {
	kept, removed = lo.FilterReject(tracks, func(t models.Track, _ int) bool {
		return !known.Contains(t.ID)
	})
	return kept, removed
}

// ShuffleTruncate returns a shuffled copy of tracks cut to at most limit entries.
func ShuffleTruncate(rng *rand.Rand, tracks []models.Track, limit int) []models.Track {
	out := make([]models.Track, len(tracks))
	copy(out, tracks)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
