package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMatcher() *Matcher {
	return New([]string{".mp4", ".webm", ".mkv", ".avi"}, ".tbn", DefaultThreshold)
}

func TestExactMatchBeatsDecoy(t *testing.T) {
	m := newMatcher()
	names := []string{
		"Episode Name (1).mp4",
		"Episode Name.nfo",
		"Episode Name.mp4",
		"Episode Name.tbn",
	}

	got, ok := m.Video(names, "Episode Name")
	assert.True(t, ok)
	assert.Equal(t, "Episode Name.mp4", got)

	// case-insensitive, and still exact when the decoy sorts first
	got, ok = m.Video([]string{"episode name (1).mp4", "EPISODE NAME.MKV"}, "Episode Name")
	assert.True(t, ok)
	assert.Equal(t, "EPISODE NAME.MKV", got)
}

func TestFuzzyMatch(t *testing.T) {
	m := newMatcher()
	tests := map[string]struct {
		names []string
		base  string
		want  string
	}{
		"dots for spaces": {
			names: []string{"Twin.Peaks.S01E02.Traces.to.Nowhere.mkv", "notes.txt"},
			base:  "Twin Peaks - S01E02 - Traces to Nowhere",
			want:  "Twin.Peaks.S01E02.Traces.to.Nowhere.mkv",
		},
		"accents and punctuation": {
			names: []string{"Les Revenants - S01E01 - Camille.mp4"},
			base:  "Les Revenants S01E01 Camille!",
			want:  "Les Revenants - S01E01 - Camille.mp4",
		},
		"diacritics folded": {
			names: []string{"Amelie.mp4"},
			base:  "Amélie",
			want:  "Amelie.mp4",
		},
		"decoy without exact": {
			names: []string{"Episode Name (1).mp4", "Other Thing.mp4"},
			base:  "Episode Name",
			want:  "Episode Name (1).mp4",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := m.Video(tc.names, tc.base)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNoMatchBelowThreshold(t *testing.T) {
	m := newMatcher()
	names := []string{
		"Completely Different.mp4",
		"S02E07.mkv",
		"Episode Name.srt",
	}
	got, ok := m.Video(names, "Episode Name")
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = m.Video(nil, "Episode Name")
	assert.False(t, ok)

	_, ok = m.Video([]string{"Episode Name.mp4"}, "!!!")
	assert.False(t, ok)
}

func TestTieBreakShorterThenLexicographic(t *testing.T) {
	m := newMatcher()

	// both score 0.875 against the target, different lengths
	got, ok := m.Video([]string{"abcdefgx.mp4", "abcdefg.mp4"}, "abcdefgh")
	assert.True(t, ok)
	assert.Equal(t, "abcdefg.mp4", got)

	// equal scores and lengths
	got, ok = m.Video([]string{"abcdefgy.mp4", "abcdefgx.mp4"}, "abcdefgh")
	assert.True(t, ok)
	assert.Equal(t, "abcdefgx.mp4", got)
}

func TestDeterministicAcrossOrder(t *testing.T) {
	m := newMatcher()
	names := []string{
		"Show S01E01 Part 1.mkv",
		"Show S01E01 Part 2.mkv",
		"Show S01E01 Part 1 (copy).mkv",
		"Show S01E01 Part 1.tbn",
		"Show S01E01 Part 1-thumb.tbn",
	}
	wantVideo, _ := m.Video(names, "Show - S01E01 - Part 1")
	wantThumb, _ := m.Thumbnail(names, "Show - S01E01 - Part 1")

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), names...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		v, _ := m.Video(shuffled, "Show - S01E01 - Part 1")
		th, _ := m.Thumbnail(shuffled, "Show - S01E01 - Part 1")
		assert.Equal(t, wantVideo, v)
		assert.Equal(t, wantThumb, th)
	}
	assert.Equal(t, "Show S01E01 Part 1.mkv", wantVideo)
	assert.Equal(t, "Show S01E01 Part 1.tbn", wantThumb)
}

func TestThumbnailUsesOnlyThumbExtension(t *testing.T) {
	m := newMatcher()
	got, ok := m.Thumbnail([]string{"Pilot.jpg", "Pilot.mp4", "Pilot.TBN"}, "pilot")
	assert.True(t, ok)
	assert.Equal(t, "Pilot.TBN", got)

	_, ok = m.Thumbnail([]string{"Pilot.jpg"}, "Pilot")
	assert.False(t, ok)
}

func TestAssignGivesEachFileToOneBase(t *testing.T) {
	m := newMatcher()
	names := []string{"The.Long.Episode.Title.Part.1.mp4"}

	got := m.AssignVideos(names, []string{"The Long Episode Title Part 1", "The Long Episode Title Part 2"})
	assert.Equal(t, []string{"The.Long.Episode.Title.Part.1.mp4", ""}, got)

	got = m.AssignVideos(names, []string{"The Long Episode Title Part 2", "The Long Episode Title Part 1"})
	assert.Equal(t, []string{"", "The.Long.Episode.Title.Part.1.mp4"}, got)
}

func TestAssignEqualScoresGoToSmallerBase(t *testing.T) {
	m := newMatcher()
	names := []string{"abcdefgh.mp4"}

	// both bases score 0.875 against the one file
	assert.Equal(t, []string{"abcdefgh.mp4", ""}, m.AssignVideos(names, []string{"abcdefgx", "abcdefgy"}))
	assert.Equal(t, []string{"", "abcdefgh.mp4"}, m.AssignVideos(names, []string{"abcdefgy", "abcdefgx"}))
}

func TestAssignExactBeatsFuzzy(t *testing.T) {
	m := newMatcher()
	names := []string{"Episode 1.mp4", "Episode 1.tbn"}

	// "Episode 10" scores 0.9 against "Episode 1" but the exact owner wins
	assert.Equal(t, []string{"", "Episode 1.mp4"}, m.AssignVideos(names, []string{"Episode 10", "Episode 1"}))
	assert.Equal(t, []string{"Episode 1.tbn", ""}, m.AssignThumbnails(names, []string{"Episode 1", "Episode 10"}))
}

func TestAssignLoserFallsBackToNextBest(t *testing.T) {
	m := newMatcher()
	names := []string{"Pilot Part 1.mp4", "Pilot Part 2 (1).mp4"}

	got := m.AssignVideos(names, []string{"Pilot - Part 1", "Pilot Part 2"})
	assert.Equal(t, []string{"Pilot Part 1.mp4", "Pilot Part 2 (1).mp4"}, got)
}

func TestAssignEmpty(t *testing.T) {
	m := newMatcher()
	assert.Equal(t, []string{""}, m.AssignVideos(nil, []string{"Pilot"}))
	assert.Empty(t, m.AssignVideos([]string{"Pilot.mp4"}, nil))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "episode name", Normalize("  Episode   Name  "))
	assert.Equal(t, "show s01e01 title", Normalize("Show.S01E01.-.Title"))
	assert.Equal(t, "dont panic", Normalize("Don't Panic!?"))
	assert.Equal(t, "creme brulee", Normalize("Crème Brûlée"))
	assert.Equal(t, "", Normalize("?!,"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abcx"), 1e-9)
	assert.Less(t, Similarity("episode name", "completely different"), DefaultThreshold)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "Episode Name", BaseName("Season 1/Episode Name.nfo"))
	assert.Equal(t, "Pilot", BaseName("Pilot.NFO"))
	assert.Equal(t, "tvshow.xml", BaseName("tvshow.xml"))
	assert.True(t, IsSidecar("a.Nfo"))
	assert.False(t, IsSidecar("a.mp4"))
}
