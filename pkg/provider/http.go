package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"f1telemetryapi/pkg/caster"

	"github.com/pkg/errors"
)

var rowsCaster caster.Caster[Rows] = caster.JSONCaster[Rows]{}

// HTTPSource reads provider tables from an upstream telemetry service that
// serves one JSON array of rows per dataset path.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, ds Dataset) (Rows, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, ds.Path())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building upstream request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", ds.Path())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", ds.Path())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("upstream %s: %s: %s", ds.Path(), resp.Status, snippet(body))
	}

	if !caster.Valid(body) {
		return nil, errors.Errorf("decoding %s: malformed JSON: %s", ds.Path(), snippet(body))
	}
	rows, err := rowsCaster.From(body)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", ds.Path())
	}
	return rows, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
