//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

//go:build !linux

package disk

import "errors"

func statfs(path string) (usage, error) {
	return usage{}, errors.New("statfs not supported on this platform")
}
