package catalog

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Source produces a fresh catalog. *Scanner is the production Source.
type Source interface {
	Scan(ctx context.Context) (*Catalog, error)
}

// Cache memoizes the last successful scan until Invalidate is called. It
// never watches the filesystem itself.
type Cache struct {
	src   Source
	log   zerolog.Logger
	group singleflight.Group

	// scanMu is held for the whole of a scan so flights keyed by different
	// generations never traverse the tree at the same time.
	scanMu sync.Mutex

	mu      sync.Mutex
	current *Catalog
	gen     uint64
}

func NewCache(src Source, log zerolog.Logger) *Cache {
	return &Cache{
		src: src,
		log: log.With().Str("component", "catalog_cache").Logger(),
	}
}

// Catalog returns the memoized catalog, scanning first if there is none.
// Concurrent callers share one in-flight scan. A caller whose ctx ends stops
// waiting; the scan itself runs on for the others.
func (c *Cache) Catalog(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	if c.current != nil {
		cat := c.current
		c.mu.Unlock()
		return cat, nil
	}
	gen := c.gen
	c.mu.Unlock()

	scanCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return c.scan(scanCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

// scan runs one traversal for the generation current when scanMu is taken.
// Flights queued behind a running scan therefore collapse onto the first of
// them to finish.
func (c *Cache) scan(ctx context.Context) (*Catalog, error) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	c.mu.Lock()
	if c.current != nil {
		cat := c.current
		c.mu.Unlock()
		return cat, nil
	}
	gen := c.gen
	c.mu.Unlock()

	c.log.Debug().Uint64("generation", gen).Msg("scan started")
	cat, err := c.src.Scan(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("scan failed")
		return nil, err
	}
	c.mu.Lock()
	// a scan that began before Invalidate is handed to its waiters
	// but not kept
	if c.gen == gen {
		c.current = cat
	}
	c.mu.Unlock()
	return cat, nil
}

// Invalidate drops the memoized catalog so the next Catalog call rescans.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.log.Info().Uint64("generation", gen).Msg("catalog invalidated")
}

// Refresh invalidates and rescans in one step.
func (c *Cache) Refresh(ctx context.Context) (*Catalog, error) {
	c.Invalidate()
	return c.Catalog(ctx)
}

func (c *Cache) LookupShow(ctx context.Context, id string) (Show, error) {
	cat, err := c.Catalog(ctx)
	if err != nil {
		return Show{}, err
	}
	show, ok := cat.Show(id)
	if !ok {
		return Show{}, ErrNotFound
	}
	return show, nil
}

func (c *Cache) LookupEpisode(ctx context.Context, id string) (Episode, error) {
	cat, err := c.Catalog(ctx)
	if err != nil {
		return Episode{}, err
	}
	ep, ok := cat.Episode(id)
	if !ok {
		return Episode{}, ErrNotFound
	}
	return ep, nil
}
