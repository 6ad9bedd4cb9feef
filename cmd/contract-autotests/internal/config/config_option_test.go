package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptionGetTomlKey(t *testing.T) {
	// Explicitly set toml key
	key, ok := ConfigOption{TomlKey: "TOML_KEY"}.getTomlKey()
	assert.Equal(t, "TOML_KEY", key)
	assert.True(t, ok)

	// Explicitly disabled toml key
	_, ok = ConfigOption{TomlKey: "-"}.getTomlKey()
	assert.False(t, ok)

	// Fallback to env var
	key, ok = ConfigOption{EnvVar: "ENV_VAR"}.getTomlKey()
	assert.Equal(t, "ENV_VAR", key)
	assert.True(t, ok)

	// Env-var disabled, autogenerate from name
	key, ok = ConfigOption{Name: "test-flag", EnvVar: "-"}.getTomlKey()
	assert.Equal(t, "TEST_FLAG", key)
	assert.True(t, ok)

	// Env-var not set, autogenerate from name
	key, ok = ConfigOption{Name: "test-flag"}.getTomlKey()
	assert.Equal(t, "TEST_FLAG", key)
	assert.True(t, ok)
}

func TestConfigOptionSetValue(t *testing.T) {
	var (
		d     time.Duration
		list  []string
		count uint
		big   uint64
		flag  bool
	)

	require.NoError(t, (&ConfigOption{Name: "d", ConfigKey: &d}).setValue("1m30s"))
	assert.Equal(t, 90*time.Second, d)
	require.NoError(t, (&ConfigOption{Name: "d", ConfigKey: &d}).setValue("45"))
	assert.Equal(t, 45*time.Second, d)
	require.NoError(t, (&ConfigOption{Name: "d", ConfigKey: &d}).setValue(int64(3)))
	assert.Equal(t, 3*time.Second, d)
	assert.Error(t, (&ConfigOption{Name: "d", ConfigKey: &d}).setValue("soon"))

	require.NoError(t, (&ConfigOption{Name: "list", ConfigKey: &list}).setValue("evm.*, csdc.OrderDao"))
	assert.Equal(t, []string{"evm.*", "csdc.OrderDao"}, list)
	require.NoError(t, (&ConfigOption{Name: "list", ConfigKey: &list}).setValue(""))
	assert.Nil(t, list)

	require.NoError(t, (&ConfigOption{Name: "count", ConfigKey: &count}).setValue("4"))
	assert.Equal(t, uint(4), count)
	assert.Error(t, (&ConfigOption{Name: "count", ConfigKey: &count}).setValue(int64(-1)))

	require.NoError(t, (&ConfigOption{Name: "big", ConfigKey: &big}).setValue("20000000000"))
	assert.Equal(t, uint64(20000000000), big)

	require.NoError(t, (&ConfigOption{Name: "flag", ConfigKey: &flag}).setValue("TRUE"))
	assert.True(t, flag)
	assert.Error(t, (&ConfigOption{Name: "flag", ConfigKey: &flag}).setValue("maybe"))
}

func TestConfigOptionSetValueRejects(t *testing.T) {
	var (
		small uint8
		ratio float64
	)

	require.NoError(t, (&ConfigOption{Name: "small", ConfigKey: &small}).setValue(uint64(255)))
	assert.Equal(t, uint8(255), small)
	assert.EqualError(t, (&ConfigOption{Name: "small", ConfigKey: &small}).setValue("256"), "small overflows uint8")

	assert.EqualError(t, (&ConfigOption{Name: "ratio", ConfigKey: &ratio}).setValue("0.5"), "no parser for option ratio")

	var format LogFormat
	require.NoError(t, format.UnmarshalText([]byte("json")))
	assert.Equal(t, LogFormatJSON, format)
	assert.Equal(t, "json", format.String())
	assert.EqualError(t, format.UnmarshalText([]byte("xml")), "unknown log format: xml")
	assert.Equal(t, "unknown", LogFormat(7).String())
}
