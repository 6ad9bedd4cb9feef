package config

import (
	"go/types"
	"reflect"
	"strings"
	"time"

	"github.com/stellar/go/support/errors"
)

// ConfigOptions is the option table of a Config.
type ConfigOptions []*ConfigOption

// Validate runs the validator of every option, stopping at the first failure.
func (options ConfigOptions) Validate() error {
	for _, option := range options {
		if option.Validate != nil {
			err := option.Validate(option)
			if err != nil {
				return errors.Wrapf(err, "Invalid config value for %s", option.Name)
			}
		}
	}
	return nil
}

// byName returns the option with the given name, or nil.
func (options ConfigOptions) byName(name string) *ConfigOption {
	for _, option := range options {
		if option.Name == name {
			return option
		}
	}
	return nil
}

// ConfigOption binds one setting to its flag, environment variable and TOML
// key. Name doubles as the flag name; EnvVar and TomlKey default to its
// upper snake case form, and "-" leaves the option out of the environment or
// the TOML file.
type ConfigOption struct {
	Name           string
	EnvVar         string
	TomlKey        string
	Usage          string
	OptType        types.BasicKind // flag type, e.g. types.Uint
	DefaultValue   interface{}
	ConfigKey      interface{} // pointer into Config
	CustomSetValue func(*ConfigOption, interface{}) error
	Validate       func(*ConfigOption) error // runs once every source is loaded
	MarshalTOML    func(*ConfigOption) (interface{}, error)
}

// getTomlKey reports false for options kept out of the TOML file.
func (o ConfigOption) getTomlKey() (string, bool) {
	if o.TomlKey == "-" || o.TomlKey == "_" {
		return "", false
	}
	if o.TomlKey != "" {
		return o.TomlKey, true
	}
	if o.EnvVar != "" && o.EnvVar != "-" {
		return o.EnvVar, true
	}
	return strings.ToUpper(strings.ReplaceAll(o.Name, "-", "_")), true
}

func (o *ConfigOption) setValue(i interface{}) (err error) {
	if o.CustomSetValue != nil {
		return o.CustomSetValue(o, i)
	}
	// A ConfigKey whose named type differs from the parser's target panics
	// on the type assertion.
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Errorf("could not set %s: %v", o.Name, recovered)
		}
	}()
	var parser func(*ConfigOption, interface{}) error
	switch o.ConfigKey.(type) {
	case *time.Duration:
		parser = parseDuration
	case *[]string:
		parser = parseStringSlice
	default:
		switch reflect.ValueOf(o.ConfigKey).Elem().Kind() {
		case reflect.Bool:
			parser = parseBool
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			parser = parseUnsigned
		case reflect.String:
			parser = parseString
		default:
			return errors.Errorf("no parser for option %s", o.Name)
		}
	}

	return parser(o, i)
}

func (o *ConfigOption) marshalTOML() (interface{}, error) {
	if o.MarshalTOML != nil {
		return o.MarshalTOML(o)
	}
	// go-toml renders uint64 but not the narrower unsigned types.
	switch v := o.ConfigKey.(type) {
	case *time.Duration:
		return v.String(), nil
	case *uint, *uint8, *uint16, *uint32, *uint64:
		return reflect.ValueOf(v).Elem().Uint(), nil
	default:
		return reflect.ValueOf(o.ConfigKey).Elem().Interface(), nil
	}
}
