package provider

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"f1telemetryapi/pkg/caster"

	"github.com/pkg/errors"
)

var documentCaster caster.Caster[map[string]Rows] = caster.JSONCaster[map[string]Rows]{}

// FixtureSource serves provider tables from a JSON document mapping dataset
// paths to row arrays. Every Fetch decodes a fresh copy so callers never
// share rows.
type FixtureSource struct {
	mu       sync.RWMutex
	datasets map[string][]byte
}

func NewFixtureSource(datasets map[string]Rows) (*FixtureSource, error) {
	f := &FixtureSource{datasets: make(map[string][]byte, len(datasets))}
	for path, rows := range datasets {
		if err := f.Put(path, rows); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// LoadFixtureFile reads a fixture document from disk.
func LoadFixtureFile(path string) (*FixtureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading fixture file")
	}
	doc, err := documentCaster.From(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding fixture file %s", path)
	}
	return NewFixtureSource(doc)
}

func (f *FixtureSource) Put(path string, rows Rows) error {
	if rows == nil {
		rows = Rows{}
	}
	data, err := rowsCaster.To(rows)
	if err != nil {
		return errors.Wrapf(err, "encoding fixture %s", path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[strings.Trim(path, "/")] = data
	return nil
}

// Raw returns the encoded rows stored under path.
func (f *FixtureSource) Raw(path string) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.datasets[strings.Trim(path, "/")]
	return data, ok
}

func (f *FixtureSource) Fetch(ctx context.Context, ds Dataset) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := f.Raw(ds.Path())
	if !ok {
		return nil, errors.Errorf("no data for %s", ds.Path())
	}
	return rowsCaster.From(data)
}

// ServeHTTP exposes the fixture with the upstream URL layout, so it can
// stand in for the telemetry service.
func (f *FixtureSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, ok := f.Raw(r.URL.Path)
	if !ok {
		http.Error(w, "no data for "+r.URL.Path, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
