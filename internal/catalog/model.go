package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// ScanDirectoryError reports a directory that could not be read during a scan.
type ScanDirectoryError struct {
	Path string
	Err  error
}

func (e *ScanDirectoryError) Error() string {
	return fmt.Sprintf("scan directory %s: %v", e.Path, e.Err)
}

func (e *ScanDirectoryError) Unwrap() error { return e.Err }

// Issue is a non-fatal problem met during a scan.
type Issue struct {
	Path string
	Err  error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

type Show struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Plot       string    `json:"plot,omitempty"`
	Year       *int      `json:"year,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	PosterPath string    `json:"-"`
	ThumbURL   string    `json:"thumb_url,omitempty"`
	Dir        string    `json:"-"`
	Episodes   []Episode `json:"episodes"`
}

type Episode struct {
	ID            string `json:"id"`
	ShowID        string `json:"show_id"`
	Title         string `json:"title"`
	Plot          string `json:"plot,omitempty"`
	Season        *int   `json:"season,omitempty"`
	Number        *int   `json:"episode,omitempty"`
	Aired         string `json:"aired,omitempty"`
	VideoPath     string `json:"-"`
	ThumbnailPath string `json:"-"`
	SidecarPath   string `json:"-"`
	HasMetadata   bool   `json:"has_metadata"`

	relPath string
}

// Numbered reports whether both season and episode number are known.
func (e Episode) Numbered() bool {
	return e.Season != nil && e.Number != nil
}

func (e Episode) HasVideo() bool { return e.VideoPath != "" }

// fileName is the name unnumbered episodes sort by: the video when there is
// one, the sidecar otherwise.
func (e Episode) fileName() string {
	if e.VideoPath != "" {
		return filepath.Base(e.VideoPath)
	}
	return filepath.Base(e.SidecarPath)
}

type episodeRef struct {
	show    int
	episode int
}

// Catalog is an immutable snapshot of the library. Slices handed out by its
// accessors share storage with the snapshot and must not be modified.
type Catalog struct {
	ScannedAt time.Time

	issues   []Issue
	shows    []Show
	showIdx  map[string]int
	episodes map[string]episodeRef
}

func newCatalog(shows []Show, issues []Issue, scannedAt time.Time) *Catalog {
	c := &Catalog{
		ScannedAt: scannedAt,
		issues:    issues,
		shows:     shows,
		showIdx:   make(map[string]int, len(shows)),
		episodes:  make(map[string]episodeRef),
	}
	for i, sh := range shows {
		c.showIdx[sh.ID] = i
		for j, ep := range sh.Episodes {
			c.episodes[ep.ID] = episodeRef{show: i, episode: j}
		}
	}
	return c
}

func (c *Catalog) Shows() []Show {
	out := make([]Show, len(c.shows))
	copy(out, c.shows)
	return out
}

// Issues lists the non-fatal problems met while scanning.
func (c *Catalog) Issues() []Issue {
	out := make([]Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

func (c *Catalog) Show(id string) (Show, bool) {
	i, ok := c.showIdx[id]
	if !ok {
		return Show{}, false
	}
	return c.shows[i], true
}

func (c *Catalog) Episode(id string) (Episode, bool) {
	ref, ok := c.episodes[id]
	if !ok {
		return Episode{}, false
	}
	return c.shows[ref.show].Episodes[ref.episode], true
}

func (c *Catalog) ShowCount() int { return len(c.shows) }

func (c *Catalog) EpisodeCount() int { return len(c.episodes) }

func shortID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])[:12]
}
