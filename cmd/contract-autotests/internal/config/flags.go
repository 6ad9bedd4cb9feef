package config

import (
	"go/types"

	"github.com/spf13/viper"
	support "github.com/stellar/go/support/config"
	"github.com/stellar/go/support/errors"
)

func (cfg *Config) flags() support.ConfigOptions {
	options := cfg.options()
	flags := make([]*support.ConfigOption, 0, len(options))
	for _, option := range options {
		if f := option.flag(); f != nil {
			flags = append(flags, f)
		}
	}
	return flags
}

// Convert our configOption into a CLI flag, if it should be one.
func (o *ConfigOption) flag() *support.ConfigOption {
	f := &support.ConfigOption{
		Name:        o.Name,
		EnvVar:      o.EnvVar,
		OptType:     o.OptType,
		FlagDefault: o.flagDefault(),
		Required:    false,
		Usage:       o.Usage,
		ConfigKey:   o.ConfigKey,
	}
	if o.CustomSetValue != nil {
		f.CustomSetValue = func(co *support.ConfigOption) error {
			return errors.Wrapf(
				o.CustomSetValue(o, viper.Get(co.Name)),
				"unable to parse %s", co.Name,
			)
		}
	}
	return f
}

// pflag needs a default of exactly the flag's type.
func (o *ConfigOption) flagDefault() interface{} {
	if o.DefaultValue != nil {
		return o.DefaultValue
	}
	switch o.OptType {
	case types.Bool:
		return false
	default:
		return ""
	}
}
