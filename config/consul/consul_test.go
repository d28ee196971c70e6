//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package consul

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
)

// kvServer emulates consul kv recurse listing
func kvServer(t *testing.T, kvs map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := strings.TrimPrefix(r.URL.Path, "/v1/kv/")

		pairs := api.KVPairs{}
		for k, v := range kvs {
			if strings.HasPrefix(k, prefix) {
				pairs = append(pairs, &api.KVPair{Key: k, Value: []byte(v), ModifyIndex: 7})
			}
		}

		w.Header().Set("X-Consul-Index", "7")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")

		if len(pairs) < 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		b, err := json.Marshal(pairs)
		require.NoError(t, err)
		w.Write(b)
	}))
}

func TestNewConsul(t *testing.T) {
	srv := kvServer(t, map[string]string{
		"panoptes-dash/config/sources/rootfs":   `{"service": "disk", "config": {"path": "/"}}`,
		"panoptes-dash/config/producers/kafka1": `{"service": "kafka", "config": {"brokers": ["127.0.0.1:9092"]}}`,
		"panoptes-dash/config/database":         `{"service": "redis", "config": {"addr": "127.0.0.1:6379"}}`,
		"panoptes-dash/config/defaults":         `{"values": 100}`,
		"panoptes-dash/config/global":           `{"status": {"addr": "127.0.0.2:8081"}}`,
	})
	defer srv.Close()

	t.Setenv("PANOPTES_DASH_CONFIG_CONSUL_ADDRESS", srv.URL)
	t.Setenv("PANOPTES_DASH_CONFIG_CONSUL_WATCHERDISABLED", "true")

	cfg, err := New("-")
	require.NoError(t, err)

	require.Len(t, cfg.Sources(), 1)
	assert.Equal(t, "rootfs", cfg.Sources()[0].Config["name"])
	require.Len(t, cfg.Producers(), 1)
	assert.Equal(t, "kafka", cfg.Producers()[0].Service)
	assert.Equal(t, "127.0.0.1:6379", cfg.Database().Config["addr"])
	assert.Equal(t, float64(100), cfg.Defaults()["values"])
	assert.Equal(t, "127.0.0.2:8081", cfg.Global().Status.Addr)
	assert.NotNil(t, cfg.Informer())
	assert.NotNil(t, cfg.Logger())

	assert.NoError(t, cfg.Update())
}

func TestEmptyConfig(t *testing.T) {
	srv := kvServer(t, map[string]string{})
	defer srv.Close()

	t.Setenv("PANOPTES_DASH_CONFIG_CONSUL_ADDRESS", srv.URL)
	t.Setenv("PANOPTES_DASH_CONFIG_CONSUL_WATCHERDISABLED", "true")

	_, err := New("-")
	assert.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := New("/not/exist/consul.yaml")
	assert.Error(t, err)
}

func TestMix(t *testing.T) {
	c := &consul{
		sources:   []config.Source{},
		producers: []config.Producer{},
		defaults:  map[string]interface{}{},
		global:    &config.Global{Status: config.Status{Addr: "127.0.0.1:1"}},
		informer:  make(chan struct{}, 1),
		logger:    config.GetDefaultLogger(),
	}

	assert.Equal(t, "127.0.0.1:1", c.Global().Status.Addr)
	assert.NotNil(t, c.Informer())
	assert.NotNil(t, c.Sources())
	assert.NotNil(t, c.Producers())
	assert.NotNil(t, c.Defaults())
	assert.NotNil(t, c.Logger())
}
