package config

import (
	"io"
	"reflect"

	"github.com/pelletier/go-toml"
	"github.com/stellar/go/support/errors"
)

// parseToml applies the keys of a TOML config file to cfg. Unknown keys are
// rejected when strict is set or when the file itself sets STRICT = true.
func parseToml(r io.Reader, strict bool, cfg *Config) error {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return err
	}

	known := map[string]bool{}
	for _, option := range cfg.options() {
		key, ok := option.getTomlKey()
		if !ok {
			continue
		}
		known[key] = true
		if value := tree.Get(key); value != nil {
			if err := option.setValue(value); err != nil {
				return err
			}
		}
	}

	if !strict && !cfg.Strict {
		return nil
	}
	for _, key := range tree.Keys() {
		if !known[key] {
			return errors.Errorf("Invalid config: unknown field %q", key)
		}
	}
	return nil
}

// MarshalTOML renders the effective configuration with each option's usage
// as a comment. Options still at their zero value are written commented out.
func (cfg *Config) MarshalTOML() ([]byte, error) {
	tree, err := toml.TreeFromMap(map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	for _, option := range cfg.options() {
		key, ok := option.getTomlKey()
		if !ok {
			continue
		}

		value, err := option.marshalTOML()
		if err != nil {
			return nil, errors.Wrapf(err, "could not render %s", option.Name)
		}
		if m, ok := value.(toml.Marshaler); ok {
			if value, err = m.MarshalTOML(); err != nil {
				return nil, errors.Wrapf(err, "could not render %s", option.Name)
			}
		}

		tree.SetWithOptions(key, toml.SetOptions{
			Comment:   option.Usage,
			Commented: reflect.ValueOf(option.ConfigKey).Elem().IsZero(),
		}, value)
	}

	return tree.Marshal()
}
