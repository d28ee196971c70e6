//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package register

import (
	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/producer/console"
	"github.com/yahoo/panoptes-dash/producer/mqueue/kafka"
	"github.com/yahoo/panoptes-dash/producer/mqueue/nsq"
	"github.com/yahoo/panoptes-dash/producer/tsdb/influxdb"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/sources/aggregate"
	"github.com/yahoo/panoptes-dash/sources/disk"
	"github.com/yahoo/panoptes-dash/sources/rate"
	"github.com/yahoo/panoptes-dash/sources/scrape"
	"github.com/yahoo/panoptes-dash/store"
	"github.com/yahoo/panoptes-dash/store/memory"
	"github.com/yahoo/panoptes-dash/store/redis"
)

// Source registers all available source kinds
func Source(sourceRegistrar *source.Registrar) {
	disk.Register(sourceRegistrar)
	scrape.Register(sourceRegistrar)
	rate.Register(sourceRegistrar)
	aggregate.Register(sourceRegistrar)
}

// Producer registers all available producers
func Producer(producerRegistrar *producer.Registrar) {
	console.Register(producerRegistrar)
	kafka.Register(producerRegistrar)
	nsq.Register(producerRegistrar)
	influxdb.Register(producerRegistrar)
}

// Store registers all available series stores
func Store(storeRegistrar *store.Registrar) {
	redis.Register(storeRegistrar)
	memory.Register(storeRegistrar)
}
