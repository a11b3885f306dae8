package provider

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"time"

	"f1telemetryapi/pkg/metrics"

	"github.com/dustin/go-humanize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const CacheFileName = "provider-cache.db"

type CacheStats struct {
	Entries int64
	Bytes   int64
}

func (s CacheStats) String() string {
	return humanize.Comma(s.Entries) + " entries, " + humanize.Bytes(uint64(s.Bytes))
}

// Cache is a read-through disk cache in front of another Source. Only
// successful fetches are stored. Concurrent cold fetches of one dataset
// reach the upstream once; each caller still decodes its own rows.
type Cache struct {
	db       *sql.DB
	mu       sync.Mutex
	upstream Source
	group    singleflight.Group
	logger   logrus.FieldLogger
}

func NewCache(dir string, upstream Source, logger logrus.FieldLogger) (*Cache, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, CacheFileName))
	if err != nil {
		return nil, errors.Wrap(err, "opening cache database")
	}

	if _, err := db.Exec(buildCreatePayloadsTable()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initialising cache database")
	}

	return &Cache{
		db:       db,
		upstream: upstream,
		logger:   logger,
	}, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Close()
}

func (c *Cache) Fetch(ctx context.Context, ds Dataset) (Rows, error) {
	path := ds.Path()

	payload, found, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return rowsCaster.From(payload)
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	// the flight outlives any one caller; the upstream client timeout bounds it
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(path, func() (interface{}, error) {
		// another flight may have stored it since the lookup above
		if payload, found, err := c.lookup(path); err == nil && found {
			return payload, nil
		}
		rows, err := c.upstream.Fetch(flightCtx, ds)
		if err != nil {
			return nil, err
		}
		payload, err := rowsCaster.To(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s", path)
		}
		if err := c.store(path, payload); err != nil {
			c.logger.WithError(err).Warnf("could not cache %s", path)
		} else {
			c.logger.Debugf("cached %s (%s)", path, humanize.Bytes(uint64(len(payload))))
		}
		return payload, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debugf("shared upstream fetch of %s", path)
		}
		return rowsCaster.From(res.Val.([]byte))
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for %s", path)
	}
}

func (c *Cache) lookup(path string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query, args, read := buildSelectPayloadCommand(path)
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, false, errors.Wrap(err, "reading cache")
	}
	payload, found, err := read(rows)
	if err != nil {
		return nil, false, errors.Wrap(err, "reading cache")
	}
	return payload, found, nil
}

func (c *Cache) store(path string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	query, args := buildUpsertPayloadCommand(path, payload, time.Now())
	_, err := c.db.Exec(query, args...)
	return err
}

func (c *Cache) Stats() (CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query, read := buildStatsCommand()
	rows, err := c.db.Query(query)
	if err != nil {
		return CacheStats{}, errors.Wrap(err, "reading cache stats")
	}
	return read(rows)
}
