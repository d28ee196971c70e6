//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package secret

import (
	"fmt"
	"strings"

	"github.com/yahoo/panoptes-dash/secret/vault"
)

// Secret represents secret engine
type Secret interface {
	GetSecrets(path string) (map[string][]byte, error)
}

// ParseRemoteSecretInfo returns the secret engine type and path
// if the value is a remote secret reference: __<type>::<path>
func ParseRemoteSecretInfo(s string) (string, string, bool) {
	if !strings.HasPrefix(s, "__") {
		return "", "", false
	}

	parts := strings.SplitN(s[2:], "::", 2)
	if len(parts) != 2 || len(parts[0]) < 1 || len(parts[1]) < 1 {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// GetSecretEngine returns the requested secret engine
func GetSecretEngine(sType string) (Secret, error) {
	switch sType {
	case "vault":
		return vault.New()
	}

	return nil, fmt.Errorf("secret engine: %s not supported", sType)
}

// GetCredential resolves value if it's a remote secret
// reference and returns key from the secret, otherwise
// value is returned as is.
func GetCredential(value, key string) (string, error) {
	sType, path, ok := ParseRemoteSecretInfo(value)
	if !ok {
		return value, nil
	}

	engine, err := GetSecretEngine(sType)
	if err != nil {
		return "", err
	}

	return lookup(engine, path, key)
}

func lookup(engine Secret, path, key string) (string, error) {
	secrets, err := engine.GetSecrets(path)
	if err != nil {
		return "", err
	}

	v, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("secret %s not found at %s", key, path)
	}

	return string(v), nil
}
