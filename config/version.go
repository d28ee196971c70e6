//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

const version = "0.1.0"

// GetVersion returns panoptes-dash version
func GetVersion() string {
	return version
}
