//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

//go:build linux

package disk

import "golang.org/x/sys/unix"

func statfs(path string) (usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return usage{}, err
	}

	bsize := uint64(st.Bsize)

	return usage{
		total: st.Blocks * bsize,
		free:  st.Bfree * bsize,
		avail: st.Bavail * bsize,
	}, nil
}
