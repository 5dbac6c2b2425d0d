// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Setting names. The external key for a setting is NAMESPACE_SETTING.
const (
	SettingURL            = "URL"
	SettingMaxConnections = "MAX_CONNECTIONS"
	SettingMinConnections = "MIN_CONNECTIONS"
	SettingAcquireTimeout = "ACQUIRE_TIMEOUT"
	SettingMaxLifetime    = "MAX_LIFETIME"
	SettingIdleTimeout    = "IDLE_TIMEOUT"
)

// Compiled-in defaults, used for every setting that is not set.
const (
	DefaultURL               = "sqlite:db.sqlite"
	DefaultMaxConnections    = 10
	DefaultMinConnections    = 0
	DefaultAcquireTimeout    = 30 * time.Second
	DefaultMaxLifetime       = 30 * time.Minute
	DefaultIdleTimeout       = 10 * time.Minute
	DefaultTestBeforeAcquire = false
)

// Settings is the resolved pool configuration for one namespace.
type Settings struct {
	URL            string
	MaxConnections uint32
	MinConnections uint32
	AcquireTimeout time.Duration
	MaxLifetime    time.Duration
	IdleTimeout    time.Duration

	// TestBeforeAcquire pings every connection before it is leased.
	// It has no external key; set it through Config.
	TestBeforeAcquire bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		URL:               DefaultURL,
		MaxConnections:    DefaultMaxConnections,
		MinConnections:    DefaultMinConnections,
		AcquireTimeout:    DefaultAcquireTimeout,
		MaxLifetime:       DefaultMaxLifetime,
		IdleTimeout:       DefaultIdleTimeout,
		TestBeforeAcquire: DefaultTestBeforeAcquire,
	}
}

// SettingsSource supplies raw setting values.
// Lookup reports ok=false when the key is not set.
type SettingsSource interface {
	Lookup(key string) (value string, ok bool, err error)
}

// EnvSource returns a source that reads the process environment.
// Keys are matched in upper case, so namespace "app" reads APP_URL.
// An empty variable counts as set.
func EnvSource() SettingsSource {
	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	return ViperSource(v)
}

// ViperSource returns a source backed by v. Use it to layer a config file
// under the environment:
//
//	v := viper.New()
//	v.SetConfigFile("/etc/app/db.yaml")
//	_ = v.ReadInConfig()
//	v.AutomaticEnv()
//	src := sqlitedb.ViperSource(v)
func ViperSource(v *viper.Viper) SettingsSource {
	return viperSource{v: v}
}

type viperSource struct {
	v *viper.Viper
}

func (s viperSource) Lookup(key string) (string, bool, error) {
	if !s.v.IsSet(key) {
		return "", false, nil
	}
	value, err := cast.ToStringE(s.v.Get(key))
	if err != nil {
		return "", true, err
	}
	return value, true, nil
}

// MapSource returns a source backed by a fixed map. Keys are exact.
func MapSource(m map[string]string) SettingsSource {
	return mapSource(m)
}

type mapSource map[string]string

func (s mapSource) Lookup(key string) (string, bool, error) {
	value, ok := s[key]
	return value, ok, nil
}

// ResolveSettings reads the six namespaced settings from src. Unset keys
// take their defaults; a set key that does not parse fails with ErrConfig.
func ResolveSettings(src SettingsSource, namespace string) (Settings, error) {
	settings := DefaultSettings()
	var err error

	if settings.URL, err = resolveString(src, namespace, SettingURL, DefaultURL); err != nil {
		return Settings{}, err
	}
	if settings.MaxConnections, err = resolveUint32(src, namespace, SettingMaxConnections, DefaultMaxConnections); err != nil {
		return Settings{}, err
	}
	if settings.MinConnections, err = resolveUint32(src, namespace, SettingMinConnections, DefaultMinConnections); err != nil {
		return Settings{}, err
	}
	if settings.AcquireTimeout, err = resolveSeconds(src, namespace, SettingAcquireTimeout, DefaultAcquireTimeout); err != nil {
		return Settings{}, err
	}
	if settings.MaxLifetime, err = resolveSeconds(src, namespace, SettingMaxLifetime, DefaultMaxLifetime); err != nil {
		return Settings{}, err
	}
	if settings.IdleTimeout, err = resolveSeconds(src, namespace, SettingIdleTimeout, DefaultIdleTimeout); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// validate rejects resolved settings that cannot describe a usable pool.
func (s Settings) validate() error {
	if s.MaxConnections == 0 {
		return newf(ErrConfig, "sqlitedb: max connections must be positive")
	}
	if s.AcquireTimeout <= 0 {
		return newf(ErrConfig, "sqlitedb: acquire timeout must be positive")
	}
	if s.MinConnections > s.MaxConnections {
		return newf(ErrConfig, "sqlitedb: min connections (%d) exceeds max connections (%d)", s.MinConnections, s.MaxConnections)
	}
	return nil
}

// settingKey returns the external key for a setting in namespace.
func settingKey(namespace, setting string) string {
	return namespace + "_" + setting
}

func lookup(src SettingsSource, namespace, setting string) (string, bool, error) {
	key := settingKey(namespace, setting)
	value, ok, err := src.Lookup(key)
	if err != nil {
		return "", false, wrapf(ErrConfig, err, "sqlitedb: read %s", key)
	}
	return value, ok, nil
}

func resolveString(src SettingsSource, namespace, setting, def string) (string, error) {
	value, ok, err := lookup(src, namespace, setting)
	if err != nil || !ok {
		return def, err
	}
	return value, nil
}

func resolveUint32(src SettingsSource, namespace, setting string, def uint32) (uint32, error) {
	value, ok, err := lookup(src, namespace, setting)
	if err != nil || !ok {
		return def, err
	}
	n, err := parseUint32(value)
	if err != nil {
		return 0, wrapf(ErrConfig, err, "sqlitedb: parse %s=%q", settingKey(namespace, setting), value)
	}
	return n, nil
}

// resolveSeconds reads a whole number of seconds.
func resolveSeconds(src SettingsSource, namespace, setting string, def time.Duration) (time.Duration, error) {
	value, ok, err := lookup(src, namespace, setting)
	if err != nil || !ok {
		return def, err
	}
	n, err := parseUint32(value)
	if err != nil {
		return 0, wrapf(ErrConfig, err, "sqlitedb: parse %s=%q", settingKey(namespace, setting), value)
	}
	return time.Duration(n) * time.Second, nil
}

// parseUint32 accepts plain decimal digits only.
func parseUint32(value string) (uint32, error) {
	if value == "" {
		return 0, errors.New("empty value")
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return uint32(n), nil
}
