//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import "errors"

var (
	// ErrInvalidTypecast means the typecast isn't a supported scalar type
	ErrInvalidTypecast = errors.New("invalid typecast")
	// ErrInvalidValue means a value couldn't be converted or is out of range
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidSubscribeMode means subscribe is neither first nor all
	ErrInvalidSubscribeMode = errors.New("invalid subscribe mode")
	// ErrInvalidSource means the upstream channel list is empty or malformed
	ErrInvalidSource = errors.New("invalid upstream source")
	// ErrStarted means the source has been started or cancelled already
	ErrStarted = errors.New("source already started")
)
