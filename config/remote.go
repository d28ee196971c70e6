//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Remote represents configuration decoded from a key/value layout:
//
//	<prefix>sources/<name>   {"service": "disk", "config": {...}}
//	<prefix>producers/<name> {"service": "kafka", "config": {...}}
//	<prefix>database         {"service": "redis", "config": {...}}
//	<prefix>defaults         {"values": 1080, "disk": {"interval": 60}}
//	<prefix>global           {"status": {"addr": "..."}, "logger": {...}}
type Remote struct {
	Sources   []Source
	Producers []Producer
	Database  Database
	Defaults  map[string]interface{}
	Global    *Global
}

// DecodeRemote decodes key/value pairs, keys are trimmed by prefix.
func DecodeRemote(prefix string, kvs map[string][]byte) (*Remote, error) {
	r := &Remote{
		Defaults: make(map[string]interface{}),
		Global:   &Global{},
	}

	if len(kvs) < 1 {
		return nil, errors.New("remote configuration is empty")
	}

	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := kvs[key]
		// skip folder
		if len(value) < 1 {
			continue
		}

		folder, k := path.Split(strings.TrimPrefix(key, prefix))

		switch folder {
		case "sources/":
			src := Source{}
			if err := json.Unmarshal(value, &src); err != nil {
				return nil, fmt.Errorf("source %s: %w", k, err)
			}

			if src.Config == nil {
				src.Config = make(map[string]interface{})
			}

			if _, ok := src.Config["name"]; !ok {
				src.Config["name"] = k
			}

			if err := SourceValidation(src); err != nil {
				return nil, err
			}

			r.Sources = append(r.Sources, src)
		case "producers/":
			producer := Producer{}
			if err := json.Unmarshal(value, &producer); err != nil {
				return nil, fmt.Errorf("producer %s: %w", k, err)
			}

			producer.Name = k
			r.Producers = append(r.Producers, producer)
		case "":
			var err error
			switch k {
			case "database":
				err = json.Unmarshal(value, &r.Database)
			case "defaults":
				err = json.Unmarshal(value, &r.Defaults)
			case "global":
				err = json.Unmarshal(value, r.Global)
			}

			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		}
	}

	if r.Database.Service == "" {
		r.Database.Service = "redis"
	}

	if r.Database.Config == nil {
		r.Database.Config = make(map[string]interface{})
	}

	SetDefaultGlobal(r.Global)

	return r, nil
}
