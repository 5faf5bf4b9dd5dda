package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tooba/internal/match"
	"tooba/internal/nfo"
)

const showSidecar = "tvshow.nfo"

// posterNames are the thumbnail base names tried, in order, for a show poster.
var posterNames = []string{"tvshow", "poster", "folder"}

// Scanner builds a Catalog from a directory tree where every immediate
// subdirectory of the root is one show.
type Scanner struct {
	fsys    fs.FS
	root    string
	matcher *match.Matcher
	log     zerolog.Logger
	now     func() time.Time
}

// NewScanner reads the tree through fsys. Paths stored on episodes are
// joined onto root so they can be opened outside fsys.
func NewScanner(fsys fs.FS, root string, m *match.Matcher, log zerolog.Logger) *Scanner {
	return &Scanner{
		fsys:    fsys,
		root:    root,
		matcher: m,
		log:     log.With().Str("component", "scanner").Logger(),
		now:     time.Now,
	}
}

// Scan walks the whole tree. Bad sidecars and unreadable show directories
// are logged and recorded as issues; only an unreadable root or a
// cancelled context fails the scan.
func (s *Scanner) Scan(ctx context.Context) (*Catalog, error) {
	started := s.now()
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, &ScanDirectoryError{Path: s.abs("."), Err: err}
	}

	var issues []Issue
	shows := make([]Show, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || hidden(e.Name()) {
			continue
		}
		show, showIssues, err := s.scanShow(ctx, e.Name())
		issues = append(issues, showIssues...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warn().Err(err).Str("show", e.Name()).Msg("show skipped")
			issues = append(issues, Issue{Path: s.abs(e.Name()), Err: err})
			continue
		}
		shows = append(shows, show)
	}

	sort.SliceStable(shows, func(i, j int) bool {
		ti, tj := strings.ToLower(shows[i].Title), strings.ToLower(shows[j].Title)
		if ti != tj {
			return ti < tj
		}
		return shows[i].Dir < shows[j].Dir
	})

	cat := newCatalog(shows, issues, started)
	s.log.Info().
		Int("shows", cat.ShowCount()).
		Int("episodes", cat.EpisodeCount()).
		Int("issues", len(issues)).
		Dur("took", s.now().Sub(started)).
		Msg("scan completed")
	return cat, nil
}

// showTree is every directory of one show with its file names, keyed by
// slash-separated path relative to the scan root.
type showTree struct {
	dirs  []string
	files map[string][]string
}

func (s *Scanner) readShowTree(ctx context.Context, dir string) (showTree, error) {
	tree := showTree{files: make(map[string][]string)}
	err := fs.WalkDir(s.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &ScanDirectoryError{Path: s.abs(p), Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != dir && hidden(d.Name()) {
				return fs.SkipDir
			}
			tree.dirs = append(tree.dirs, p)
			return nil
		}
		parent := path.Dir(p)
		tree.files[parent] = append(tree.files[parent], d.Name())
		return nil
	})
	return tree, err
}

func (s *Scanner) scanShow(ctx context.Context, dir string) (Show, []Issue, error) {
	tree, err := s.readShowTree(ctx, dir)
	if err != nil {
		return Show{}, nil, err
	}

	var issues []Issue
	note := func(p string, err error) {
		issues = append(issues, Issue{Path: s.abs(p), Err: err})
		evt := s.log.Warn()
		if errors.Is(err, nfo.ErrUnsupportedSchema) {
			evt = s.log.Debug()
		}
		evt.Err(err).Str("path", p).Msg("sidecar skipped")
	}

	show := Show{
		ID:    shortID(dir),
		Title: dir,
		Dir:   s.abs(dir),
	}
	titled := s.applyShowSidecar(&show, dir, tree.files[dir], note)
	show.PosterPath = s.poster(dir, tree.files[dir])

	var episodes []Episode
	for _, d := range tree.dirs {
		eps, showTitle := s.scanDir(show.ID, d, tree.files[d], note)
		episodes = append(episodes, eps...)
		if !titled && show.Title == dir && showTitle != nil {
			show.Title = *showTitle
		}
	}

	sortEpisodes(episodes)
	assignEpisodeIDs(show.ID, episodes)
	show.Episodes = episodes

	s.log.Debug().
		Str("show", show.Title).
		Int("episodes", len(episodes)).
		Int("issues", len(issues)).
		Msg("show scanned")
	return show, issues, nil
}

// applyShowSidecar fills show from tvshow.nfo and reports whether the
// sidecar supplied a title.
func (s *Scanner) applyShowSidecar(show *Show, dir string, names []string, note func(string, error)) bool {
	for _, name := range names {
		if !strings.EqualFold(name, showSidecar) {
			continue
		}
		p := path.Join(dir, name)
		rec, err := nfo.ParseFile(s.fsys, p)
		if err != nil {
			note(p, err)
			return false
		}
		showRec, ok := rec.(nfo.ShowRecord)
		if !ok {
			note(p, fmt.Errorf("%w: <%s> in %s", nfo.ErrUnsupportedSchema, rec.Root(), showSidecar))
			return false
		}
		if showRec.Title != nil {
			show.Title = *showRec.Title
		}
		if showRec.Plot != nil {
			show.Plot = *showRec.Plot
		}
		if showRec.ThumbURL != nil {
			show.ThumbURL = *showRec.ThumbURL
		}
		show.Year = showRec.Year
		show.Genres = showRec.Genres
		return showRec.Title != nil
	}
	return false
}

func (s *Scanner) poster(dir string, names []string) string {
	for _, base := range posterNames {
		if name, ok := s.matcher.Thumbnail(names, base); ok {
			return s.abs(path.Join(dir, name))
		}
	}
	return ""
}

// scanDir builds the episodes of one directory. Videos are paired with the
// sidecars first and any video left over becomes an episode of its own.
// Thumbnails are then paired across all of them, one episode per file.
func (s *Scanner) scanDir(showID, dir string, names []string, note func(string, error)) ([]Episode, *string) {
	var (
		episodes  []Episode
		bases     []string
		showTitle *string
	)
	for _, name := range episodeSidecars(names) {
		p := path.Join(dir, name)
		rec, err := nfo.ParseFile(s.fsys, p)
		if err != nil {
			note(p, err)
			continue
		}
		epRec, ok := rec.(nfo.EpisodeRecord)
		if !ok {
			note(p, fmt.Errorf("%w: <%s> outside the show root", nfo.ErrUnsupportedSchema, rec.Root()))
			continue
		}
		episodes = append(episodes, s.episodeFromRecord(showID, dir, name, epRec))
		bases = append(bases, match.BaseName(name))
		if showTitle == nil {
			showTitle = epRec.ShowTitle
		}
	}

	claimed := make(map[string]bool)
	for i, video := range s.matcher.AssignVideos(names, bases) {
		if video != "" {
			episodes[i].VideoPath = s.abs(path.Join(dir, video))
			claimed[video] = true
		}
	}
	for _, name := range names {
		if s.matcher.IsVideo(name) && !claimed[name] {
			episodes = append(episodes, s.orphanEpisode(showID, dir, name))
			bases = append(bases, strings.TrimSuffix(name, filepath.Ext(name)))
		}
	}

	for i, thumb := range s.matcher.AssignThumbnails(names, bases) {
		if thumb != "" {
			episodes[i].ThumbnailPath = s.abs(path.Join(dir, thumb))
		}
	}
	return episodes, showTitle
}

func (s *Scanner) episodeFromRecord(showID, dir, sidecar string, rec nfo.EpisodeRecord) Episode {
	ep := Episode{
		ShowID:      showID,
		Title:       match.BaseName(sidecar),
		Season:      rec.Season,
		Number:      rec.Episode,
		SidecarPath: s.abs(path.Join(dir, sidecar)),
		HasMetadata: true,
		relPath:     path.Join(dir, sidecar),
	}
	if rec.Title != nil {
		ep.Title = *rec.Title
	}
	if rec.Plot != nil {
		ep.Plot = *rec.Plot
	}
	if rec.Aired != nil {
		ep.Aired = *rec.Aired
	}
	return ep
}

func episodeSidecars(names []string) []string {
	var out []string
	for _, name := range names {
		if match.IsSidecar(name) && !strings.EqualFold(name, showSidecar) {
			out = append(out, name)
		}
	}
	return out
}

// orphanEpisode surfaces a video no sidecar claimed so it stays playable.
func (s *Scanner) orphanEpisode(showID, dir, name string) Episode {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	ep := Episode{
		ShowID:    showID,
		Title:     base,
		VideoPath: s.abs(path.Join(dir, name)),
		relPath:   path.Join(dir, name),
	}
	if season, number, ok := numberingFromName(base); ok {
		ep.Season, ep.Number = &season, &number
	}
	return ep
}

func (s *Scanner) abs(rel string) string {
	if s.root == "" {
		return rel
	}
	if rel == "." {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// sortEpisodes puts numbered episodes first by (season, episode), then the
// rest by file name. Path breaks any remaining tie.
func sortEpisodes(eps []Episode) {
	sort.SliceStable(eps, func(i, j int) bool {
		a, b := eps[i], eps[j]
		if a.Numbered() != b.Numbered() {
			return a.Numbered()
		}
		if a.Numbered() {
			if *a.Season != *b.Season {
				return *a.Season < *b.Season
			}
			if *a.Number != *b.Number {
				return *a.Number < *b.Number
			}
		}
		if fa, fb := a.fileName(), b.fileName(); fa != fb {
			return fa < fb
		}
		return a.relPath < b.relPath
	})
}

// assignEpisodeIDs gives numbered episodes a (show, season, episode)
// identity. A later episode reusing a number keeps its path identity so IDs
// stay unique within the show.
func assignEpisodeIDs(showID string, eps []Episode) {
	seen := make(map[string]bool, len(eps))
	for i := range eps {
		id := ""
		if eps[i].Numbered() {
			id = shortID(showID, fmt.Sprintf("s%de%d", *eps[i].Season, *eps[i].Number))
		}
		if id == "" || seen[id] {
			id = shortID(showID, eps[i].relPath)
		}
		seen[id] = true
		eps[i].ID = id
	}
}

var numberingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,3})[ ._-]?e(\d{1,4})(?:[^0-9]|$)`), // S01E02, s1.e2
	regexp.MustCompile(`(?:^|[^0-9])(\d{1,2})x(\d{1,3})(?:[^0-9]|$)`),                // 1x02
}

func numberingFromName(name string) (int, int, bool) {
	for _, re := range numberingPatterns {
		m := re.FindStringSubmatch(name)
		if len(m) < 3 {
			continue
		}
		season, err1 := strconv.Atoi(m[1])
		episode, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return season, episode, true
		}
	}
	return 0, 0, false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@")
}
