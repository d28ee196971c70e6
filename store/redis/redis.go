//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package redis implements the series store on redis lists
// and keyspace notifications.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/secret"
	"github.com/yahoo/panoptes-dash/store"
)

const (
	defaultAddr        = "127.0.0.1:6379"
	defaultDialTimeout = 5

	// keyspace events: K keyspace channel, l list commands
	notifyEvents = "Kl"
)

// Redis represents a redis series store
type Redis struct {
	client *redis.Client
	db     int
	lg     *zap.Logger
}

type redisConfig struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	Protocol    int
	DialTimeout int `json:"dialTimeout"`
}

type subscription struct {
	pubsub *redis.PubSub
	prefix string
	closed atomic.Bool
}

// Register registers redis as a store at store registrar
func Register(storeRegistrar *store.Registrar) {
	storeRegistrar.Register("redis", "redis.io", New)
}

// New constructs a redis store. An unreachable server is logged,
// the commands fail as unavailable until it's back.
func New(cfg config.Database, lg *zap.Logger) (store.Store, error) {
	conf, err := getConfig(cfg.Config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Username:    conf.Username,
		Password:    conf.Password,
		DB:          conf.DB,
		Protocol:    conf.Protocol,
		DialTimeout: time.Duration(conf.DialTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.DialTimeout)*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// the client reconnects on demand
		lg.Warn("redis", zap.String("event", "unreachable"), zap.String("address", conf.Addr), zap.Error(err))
	} else {
		lg.Info("redis", zap.String("event", "connected"), zap.String("address", conf.Addr), zap.Int("db", conf.DB))
	}

	return &Redis{
		client: client,
		db:     conf.DB,
		lg:     lg,
	}, nil
}

func getConfig(cfg map[string]interface{}) (*redisConfig, error) {
	conf := &redisConfig{}

	if len(cfg) > 0 {
		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(b, conf); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("panoptes_dash_database_redis", conf); err != nil {
		return nil, err
	}

	if conf.Addr == "" {
		conf.Addr = defaultAddr
	}

	config.SetDefault(&conf.DialTimeout, defaultDialTimeout)

	password, err := secret.GetCredential(conf.Password, "password")
	if err != nil {
		return nil, err
	}
	conf.Password = password

	return conf, nil
}

// Push prepends the sample to the timestamp and value lists
// and trims both within one transaction.
func (r *Redis) Push(ctx context.Context, name string, s store.Sample, length int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, name+store.TimestampSuffix, store.FormatTime(s.Time))
		pipe.LPush(ctx, name+store.ValueSuffix, s.Value)
		if length > 0 {
			pipe.LTrim(ctx, name+store.TimestampSuffix, 0, int64(length-1))
			pipe.LTrim(ctx, name+store.ValueSuffix, 0, int64(length-1))
		}
		return nil
	})
	if err != nil {
		return store.Unavailable(err)
	}

	return nil
}

// Range returns up to n newest samples
func (r *Redis) Range(ctx context.Context, name string, n int) ([]store.Sample, error) {
	stop := int64(n - 1)
	if n < 1 {
		stop = -1
	}

	pipe := r.client.Pipeline()
	tsCmd := pipe.LRange(ctx, name+store.TimestampSuffix, 0, stop)
	valCmd := pipe.LRange(ctx, name+store.ValueSuffix, 0, stop)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, store.Unavailable(err)
	}

	return store.Zip(tsCmd.Val(), valCmd.Val())
}

// Subscribe subscribes to the keyspace channels of the value lists
func (r *Redis) Subscribe(ctx context.Context, names []string) (store.Subscription, error) {
	// managed redis may refuse CONFIG, notifications could be enabled already
	if err := r.client.ConfigSet(ctx, "notify-keyspace-events", notifyEvents).Err(); err != nil {
		r.lg.Warn("redis", zap.String("event", "enable keyspace notifications failed"), zap.Error(err))
	}

	prefix := fmt.Sprintf("__keyspace@%d__:", r.db)
	channels := make([]string, 0, len(names))
	for _, name := range names {
		channels = append(channels, prefix+name+store.ValueSuffix)
	}

	pubsub := r.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, store.Unavailable(err)
	}

	return &subscription{pubsub: pubsub, prefix: prefix}, nil
}

// Close closes the redis client
func (r *Redis) Close() error {
	return r.client.Close()
}

// Receive returns the series name of the next value-append event,
// other list events are skipped.
func (s *subscription) Receive(ctx context.Context) (string, error) {
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if s.closed.Load() {
				return "", store.ErrClosed
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", store.Unavailable(err)
		}

		if msg.Payload != "lpush" {
			continue
		}

		if name, ok := channelName(msg.Channel); ok {
			return name, nil
		}
	}
}

func (s *subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	return s.pubsub.Close()
}

// channelName extracts the series name from
// a keyspace channel: __keyspace@<db>__:<name>:val
func channelName(channel string) (string, bool) {
	i := strings.Index(channel, ":")
	if i < 0 {
		return "", false
	}

	key := channel[i+1:]
	if !strings.HasSuffix(key, store.ValueSuffix) {
		return "", false
	}

	return strings.TrimSuffix(key, store.ValueSuffix), true
}
