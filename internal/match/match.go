// Package match pairs sidecar metadata with the media files next to it.
//
// An exact, case-insensitive base-name match always wins. Otherwise names
// are normalized and scored by normalized edit distance; the best candidate
// at or above the threshold is taken. When several bases are matched against
// one listing each file goes to at most one of them. Results depend only on
// the listing, never on its order.
package match

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	SidecarExt       = ".nfo"
	DefaultThreshold = 0.8
)

type Matcher struct {
	videoExts map[string]bool
	thumbExt  string
	threshold float64
}

func New(videoExts []string, thumbExt string, threshold float64) *Matcher {
	m := &Matcher{
		videoExts: make(map[string]bool, len(videoExts)),
		thumbExt:  strings.ToLower(thumbExt),
		threshold: threshold,
	}
	for _, ext := range videoExts {
		m.videoExts[strings.ToLower(ext)] = true
	}
	if m.threshold <= 0 || m.threshold > 1 {
		m.threshold = DefaultThreshold
	}
	return m
}

// IsVideo reports whether name carries a recognized video extension.
func (m *Matcher) IsVideo(name string) bool {
	return m.videoExts[strings.ToLower(filepath.Ext(name))]
}

func (m *Matcher) IsThumbnail(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == m.thumbExt
}

// Video returns the file in names that best matches base.
func (m *Matcher) Video(names []string, base string) (string, bool) {
	got := m.assign(names, []string{base}, m.IsVideo)[0]
	return got, got != ""
}

// Thumbnail returns the thumbnail file in names that best matches base.
func (m *Matcher) Thumbnail(names []string, base string) (string, bool) {
	got := m.assign(names, []string{base}, m.IsThumbnail)[0]
	return got, got != ""
}

// AssignVideos pairs every base with at most one video from names, and
// every video with at most one base. out[i] is "" when bases[i] got none.
func (m *Matcher) AssignVideos(names, bases []string) []string {
	return m.assign(names, bases, m.IsVideo)
}

// AssignThumbnails is AssignVideos for thumbnail files.
func (m *Matcher) AssignThumbnails(names, bases []string) []string {
	return m.assign(names, bases, m.IsThumbnail)
}

type pairing struct {
	base, cand int
	score      float64
}

// assign claims exact stems first. The remaining bases then take the
// remaining candidates greedily: highest score first, ties to the preferred
// candidate and then to the smaller base.
func (m *Matcher) assign(names, bases []string, accept func(string) bool) []string {
	out := make([]string, len(bases))
	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if accept(name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return out
	}
	sort.Slice(candidates, func(i, j int) bool {
		return preferred(candidates[i], candidates[j])
	})

	order := make([]int, len(bases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return bases[order[i]] < bases[order[j]]
	})

	taken := make([]bool, len(candidates))
	for _, bi := range order {
		for ci, name := range candidates {
			if !taken[ci] && strings.EqualFold(stem(name), bases[bi]) {
				out[bi] = name
				taken[ci] = true
				break
			}
		}
	}

	normalized := make([]string, len(candidates))
	for ci, name := range candidates {
		normalized[ci] = Normalize(stem(name))
	}
	var pairs []pairing
	for _, bi := range order {
		if out[bi] != "" {
			continue
		}
		target := Normalize(bases[bi])
		if target == "" {
			continue
		}
		for ci := range candidates {
			if taken[ci] {
				continue
			}
			if score := Similarity(target, normalized[ci]); score >= m.threshold {
				pairs = append(pairs, pairing{base: bi, cand: ci, score: score})
			}
		}
	}
	// pairs are built in base order, so equal pairs stay ordered by base
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		return a.cand < b.cand
	})
	for _, p := range pairs {
		if taken[p.cand] || out[p.base] != "" {
			continue
		}
		out[p.base] = candidates[p.cand]
		taken[p.cand] = true
	}
	return out
}

// preferred orders shorter names first, then lexicographically.
func preferred(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// BaseName strips the sidecar suffix from a sidecar file name.
func BaseName(sidecar string) string {
	name := filepath.Base(sidecar)
	if strings.EqualFold(filepath.Ext(name), SidecarExt) {
		return name[:len(name)-len(SidecarExt)]
	}
	return name
}

func IsSidecar(name string) bool {
	return strings.EqualFold(filepath.Ext(name), SidecarExt)
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Normalize folds a name for comparison: accents dropped, lowercased,
// punctuation turned into spaces and whitespace collapsed.
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		// apostrophes join words: "Don't" and "Dont" should compare equal
		if r == '\'' || r == '’' {
			continue
		}
		b.WriteRune(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores two normalized names in [0, 1] as one minus the
// edit distance over the longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
