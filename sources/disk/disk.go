//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package disk implements a timed source which samples
// the filesystem usage of a path.
package disk

import (
	"context"
	"fmt"

	"github.com/yahoo/panoptes-dash/source"
)

type usage struct {
	total uint64
	free  uint64
	avail uint64
}

// Disk represents a filesystem usage source
type Disk struct {
	*source.Timed

	path   string
	metric string
	statfs func(path string) (usage, error)
}

// New constructs a disk source, config keys: path (default /)
// and metric: percent (default), used, free or total in bytes.
func New(b *source.Base) (source.Source, error) {
	path, err := b.Config().String("path", "/")
	if err != nil {
		return nil, err
	}

	metric, err := b.Config().String("metric", "percent")
	if err != nil {
		return nil, err
	}

	switch metric {
	case "percent", "used", "free", "total":
	default:
		return nil, fmt.Errorf("disk: unknown metric %q", metric)
	}

	d := &Disk{
		path:   path,
		metric: metric,
		statfs: statfs,
	}
	d.Timed = source.NewTimed(b, d)

	return d, nil
}

// Register registers disk as a source kind at source registrar
func Register(sourceRegistrar *source.Registrar) {
	sourceRegistrar.Register("disk", "-", New)
}

// Poll samples the filesystem usage
func (d *Disk) Poll(ctx context.Context) error {
	u, err := d.statfs(d.path)
	if err != nil {
		return fmt.Errorf("statfs %s: %w", d.path, err)
	}

	used := u.total - u.free

	switch d.metric {
	case "used":
		return d.Push(ctx, used)
	case "free":
		return d.Push(ctx, u.avail)
	case "total":
		return d.Push(ctx, u.total)
	}

	if used+u.avail == 0 {
		return d.Push(ctx, 0.0)
	}

	return d.Push(ctx, float64(used)/float64(used+u.avail)*100)
}
