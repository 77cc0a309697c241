package tasks

import (
	"math/rand/v2"
	"slices"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/plbop/internal/models"
)

func TestSampleSeeds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))

	t.Run("keeps the last window", func(t *testing.T) {
		ids := seedIDs(10)
		sample := SampleSeeds(rng, ids, 4)

		got := slices.Clone(sample)
		slices.Sort(got)
		want := []string{"s10", "s7", "s8", "s9"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("short input is kept whole", func(t *testing.T) {
		sample := SampleSeeds(rng, seedIDs(3), 200)
		if len(sample) != 3 {
			t.Errorf("expected 3 seeds, got %d", len(sample))
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		ids := seedIDs(20)
		before := slices.Clone(ids)
		SampleSeeds(rng, ids, 20)
		if !slices.Equal(ids, before) {
			t.Error("input slice was reordered")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if sample := SampleSeeds(rng, nil, 200); len(sample) != 0 {
			t.Errorf("expected empty sample, got %v", sample)
		}
	})
}

func TestChunkSeeds(t *testing.T) {
	tc := []struct {
		name      string
		count     int
		size      int
		maxChunks int
		sizes     []int
	}{
		{name: "exact multiple", count: 10, size: 5, maxChunks: 10, sizes: []int{5, 5}},
		{name: "partial last chunk", count: 12, size: 5, maxChunks: 10, sizes: []int{5, 5, 2}},
		{name: "capped by max chunks", count: 200, size: 5, maxChunks: 10, sizes: []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}},
		{name: "fewer seeds than size", count: 3, size: 5, maxChunks: 10, sizes: []int{3}},
		{name: "no seeds", count: 0, size: 5, maxChunks: 10, sizes: nil},
		{name: "zero size", count: 10, size: 0, maxChunks: 10, sizes: nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkSeeds(seedIDs(tt.count), tt.size, tt.maxChunks)
			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			if !slices.Equal(sizes, tt.sizes) {
				t.Errorf("expected chunk sizes %v, got %v", tt.sizes, sizes)
			}
		})
	}

	t.Run("chunks are taken from the end", func(t *testing.T) {
		chunks := ChunkSeeds(seedIDs(7), 5, 1)
		want := []string{"s3", "s4", "s5", "s6", "s7"}
		if len(chunks) != 1 || !slices.Equal(chunks[0], want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})
}

func TestTrackFilters(t *testing.T) {
	tracks := []models.Track{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "c"}, {ID: "b"}}

	t.Run("UniqueTracks keeps first occurrence", func(t *testing.T) {
		got := trackIDs(UniqueTracks(tracks))
		if !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("unexpected unique tracks: %v", got)
		}
	})

	t.Run("RemoveKnown", func(t *testing.T) {
		kept, removed := RemoveKnown(UniqueTracks(tracks), mapset.NewSet("b", "z"))
		if !slices.Equal(trackIDs(kept), []string{"a", "c"}) {
			t.Errorf("unexpected kept tracks: %v", trackIDs(kept))
		}
		if !slices.Equal(trackIDs(removed), []string{"b"}) {
			t.Errorf("unexpected removed tracks: %v", trackIDs(removed))
		}
	})

	t.Run("ShuffleTruncate", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		input := UniqueTracks(tracks)

		if got := ShuffleTruncate(rng, input, 2); len(got) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(got))
		}
		if got := ShuffleTruncate(rng, input, 40); len(got) != 3 {
			t.Errorf("expected all 3 tracks, got %d", len(got))
		}
		if got := ShuffleTruncate(rng, input, 0); len(got) != 0 {
			t.Errorf("expected no tracks, got %d", len(got))
		}

		all := trackIDs(ShuffleTruncate(rng, input, 40))
		slices.Sort(all)
		if !slices.Equal(all, []string{"a", "b", "c"}) {
			t.Errorf("shuffle lost tracks: %v", all)
		}
		if !slices.Equal(trackIDs(input), []string{"a", "b", "c"}) {
			t.Error("input slice was reordered")
		}
	})
}
