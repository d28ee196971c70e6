//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package vault

import (
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
)

// Vault represents Hashicorp Vault
type Vault struct {
	client *api.Client
}

type vaultConfig struct {
	Address string
	Token   string
}

// New constructs a new Vault, the address and token are
// read from PANOPTES_DASH_VAULT_ADDRESS and PANOPTES_DASH_VAULT_TOKEN,
// otherwise vault's own environment variables apply.
func New() (*Vault, error) {
	conf := &vaultConfig{}
	if err := envconfig.Process("panoptes_dash_vault", conf); err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, err
	}

	if conf.Address != "" {
		if err := client.SetAddress(conf.Address); err != nil {
			return nil, err
		}
	}

	if conf.Token != "" {
		client.SetToken(conf.Token)
	}

	return &Vault{client: client}, nil
}

// GetSecrets returns the secrets at path, kv version 2
// responses are unwrapped.
func (v *Vault) GetSecrets(path string) (map[string][]byte, error) {
	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, err
	}

	if secret == nil || secret.Data == nil {
		return nil, errors.New("secret not found")
	}

	data := secret.Data
	if d, ok := data["data"].(map[string]interface{}); ok {
		data = d
	}

	r := make(map[string][]byte, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case string:
			r[k] = []byte(t)
		default:
			r[k] = []byte(fmt.Sprint(t))
		}
	}

	return r, nil
}
