package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/stellar/go/support/errors"
)

// Values reach the parsers as strings from flags, the environment and
// dotenv files, and as typed values from TOML and option defaults.

func parseBool(option *ConfigOption, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case bool:
		*option.ConfigKey.(*bool) = v
	case string:
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return errors.Errorf("invalid boolean value %s: %s", option.Name, v)
		}
		*option.ConfigKey.(*bool) = b
	default:
		return errors.Errorf("could not parse boolean %s: %v", option.Name, i)
	}
	return nil
}

// parseUnsigned sets any unsigned field, rejecting negative values and values
// wider than the field.
func parseUnsigned(option *ConfigOption, i interface{}) error {
	field := reflect.ValueOf(option.ConfigKey).Elem()
	var u64 uint64
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "could not parse %s", option.Name)
		}
		u64 = parsed
	case int, int8, int16, int32, int64:
		i64 := reflect.ValueOf(v).Int()
		if i64 < 0 {
			return errors.Errorf("%s cannot be negative", option.Name)
		}
		u64 = uint64(i64)
	case uint, uint8, uint16, uint32, uint64:
		u64 = reflect.ValueOf(v).Uint()
	default:
		return errors.Errorf("could not parse %s: %v", option.Name, i)
	}
	if field.OverflowUint(u64) {
		return errors.Errorf("%s overflows %s", option.Name, field.Type())
	}
	field.SetUint(u64)
	return nil
}

func parseString(option *ConfigOption, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		*option.ConfigKey.(*string) = v
	default:
		return errors.Errorf("could not parse string %s: %v", option.Name, i)
	}
	return nil
}

// parseDuration accepts go duration strings ("1m30s") and plain integers,
// which are read as seconds.
func parseDuration(option *ConfigOption, i interface{}) error {
	target := option.ConfigKey.(*time.Duration)
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = time.Duration(seconds) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "could not parse duration: %q", v)
		}
		*target = d
	case time.Duration:
		*target = v
	case int, int8, int16, int32, int64:
		*target = time.Duration(reflect.ValueOf(v).Int()) * time.Second
	default:
		return errors.Errorf("%s is not a duration", option.Name)
	}
	return nil
}

// parseStringSlice reads comma separated lists, like the case name filter.
func parseStringSlice(option *ConfigOption, i interface{}) error {
	target := option.ConfigKey.(*[]string)
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			*target = nil
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*target = parts
	case []string:
		*target = v
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return errors.Errorf("could not parse %s: %v", option.Name, v)
			}
			parts[i] = s
		}
		*target = parts
	default:
		return errors.Errorf("could not parse %s: %v", option.Name, v)
	}
	return nil
}
