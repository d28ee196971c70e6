//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/store/memory"
)

const exposition = `# HELP http_requests_total requests
# TYPE http_requests_total counter
http_requests_total{code="200"} 1027
http_requests_total{code="500"} 3
# TYPE temperature gauge
temperature{rack="usv1"} 21.5
`

func newScrape(t *testing.T, conf map[string]interface{}) *Scrape {
	t.Helper()

	b := source.NewBase("scrape", config.Source{Service: "scrape", Config: conf}, nil,
		memory.New(nil), config.NewMockConfig().Logger())
	s, err := New(b)
	require.NoError(t, err)

	return s.(*Scrape)
}

func TestPoll(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exposition))
	}))
	defer srv.Close()

	s := newScrape(t, map[string]interface{}{"name": "requests", "url": srv.URL, "metric": "http_requests_total"})
	require.NoError(t, s.Poll(ctx))
	assert.Equal(t, "1030", s.Pull(ctx, 1, "")[0].Value)

	s = newScrape(t, map[string]interface{}{"name": "rack temp", "url": srv.URL, "metric": "temperature"})
	require.NoError(t, s.Poll(ctx))
	assert.Equal(t, "21.5", s.Pull(ctx, 1, "")[0].Value)

	s = newScrape(t, map[string]interface{}{"name": "x", "url": srv.URL, "metric": "missing"})
	assert.Error(t, s.Poll(ctx))
}

func TestPollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newScrape(t, map[string]interface{}{"name": "x", "url": srv.URL, "metric": "up"})
	assert.Error(t, s.Poll(context.Background()))
}

func TestParse(t *testing.T) {
	mfs, err := parse(strings.NewReader(exposition))
	require.NoError(t, err)
	assert.Len(t, mfs, 2)

	_, err = parse(strings.NewReader("not { a metric"))
	assert.Error(t, err)
}

func TestNewMissingConfig(t *testing.T) {
	b := source.NewBase("scrape", config.Source{Service: "scrape", Config: map[string]interface{}{"name": "x"}},
		nil, nil, config.NewMockConfig().Logger())
	_, err := New(b)
	assert.ErrorIs(t, err, config.ErrConfigurationMissing)
}
