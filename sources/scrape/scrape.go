//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package scrape implements a timed source which samples a metric
// family of a prometheus text exposition endpoint.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/yahoo/panoptes-dash/source"
)

const defaultTimeout = 5 * time.Second

// Scrape represents a prometheus endpoint source
type Scrape struct {
	*source.Timed

	url    string
	metric string
	client *http.Client
}

// New constructs a scrape source, config keys: url, metric
// and timeout (default 5s).
func New(b *source.Base) (source.Source, error) {
	url, err := b.Config().String("url")
	if err != nil {
		return nil, err
	}

	metric, err := b.Config().String("metric")
	if err != nil {
		return nil, err
	}

	timeout, err := b.Config().Duration("timeout", defaultTimeout)
	if err != nil {
		return nil, err
	}

	s := &Scrape{
		url:    url,
		metric: metric,
		client: &http.Client{Timeout: timeout},
	}
	s.Timed = source.NewTimed(b, s)

	return s, nil
}

// Register registers scrape as a source kind at source registrar
func Register(sourceRegistrar *source.Registrar) {
	sourceRegistrar.Register("scrape", "prometheus.io", New)
}

// Poll scrapes the endpoint and pushes the sum of the metric family
func (s *Scrape) Poll(ctx context.Context) error {
	mfs, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	mf, ok := mfs[s.metric]
	if !ok {
		return fmt.Errorf("metric %s not found at %s", s.metric, s.url)
	}

	return s.Push(ctx, sumFamily(mf))
}

func (s *Scrape) fetch(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape %s: unexpected status %d", s.url, resp.StatusCode)
	}

	return parse(resp.Body)
}

// parse decodes the text exposition, a partial result is accepted
func parse(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, err
	}

	return mfs, nil
}

func sumFamily(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Summary != nil:
			total += m.Summary.GetSampleSum()
		case m.Histogram != nil:
			total += m.Histogram.GetSampleSum()
		}
	}

	return total
}
