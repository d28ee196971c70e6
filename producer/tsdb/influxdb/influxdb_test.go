//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package influxdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

func TestLineProtocol(t *testing.T) {
	p := getPoint("dash", producer.Sample{Channel: "bps to belwue", Time: time.Unix(1595768623, 0), Value: "5587651"})
	assert.Equal(t, "dash,channel=bps\\ to\\ belwue value=5587651 1595768623000000000", strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)))

	p = getPoint("dash", producer.Sample{Channel: "state", Time: time.Unix(1, 0), Value: "up"})
	assert.Equal(t, "dash,channel=state value=\"up\" 1000000000", strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)))
}

func TestStart(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		lines = append(lines, strings.Split(strings.TrimSpace(string(b)), "\n")...)
		mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Producer{
		Name:    "influx1",
		Service: "influxdb",
		Config: map[string]interface{}{
			"server":    srv.URL,
			"org":       "selfnet",
			"bucket":    "dash",
			"batchSize": 2,
		},
	}

	ch := make(producer.MessageChan, 2)
	p := New(ctx, cfg, config.NewMockConfig().Logger(), ch)
	go p.Start()

	ch <- producer.Message{Output: "influx1::dash", Sample: producer.Sample{Channel: "cpu", Time: time.Unix(1, 0), Value: "1"}}
	ch <- producer.Message{Output: "influx1::dash", Sample: producer.Sample{Channel: "cpu", Time: time.Unix(2, 0), Value: "2"}}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "dash,channel=cpu value=1 1000000000", lines[0])
	mu.Unlock()
}

func TestGetConfig(t *testing.T) {
	i := &InfluxDB{cfg: config.Producer{Name: "influx1", Config: map[string]interface{}{}}}
	_, err := i.getConfig()
	assert.Error(t, err)

	t.Setenv("PANOPTES_DASH_PRODUCER_INFLUX1_SERVER", "http://influx:8086")
	conf, err := i.getConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://influx:8086", conf.Server)
	assert.Equal(t, 100, conf.BatchSize)
}

func TestRegister(t *testing.T) {
	r := producer.NewRegistrar(config.NewMockConfig().Logger())
	Register(r)
	_, ok := r.GetProducerFactory("influxdb")
	assert.True(t, ok)
}
