// Package config loads the cutout core's runtime tunables: a flat struct
// populated from a JSON file and then overridden field by field from
// environment variables via reflection, rather than a flag/viper-style
// layered config library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/bonimy/ibe/core/logger"
)

// Config holds the cutout core's runtime tunables. Every field can be set
// via the JSON config file and overridden individually by an
// IBE_CONFIG_<FieldName> environment variable.
type Config struct {
	// ListenAddr is the address cmd/ibecutout's cutout HTTP listener binds.
	ListenAddr string

	// MetricsAddr is the address the side /metrics listener binds.
	MetricsAddr string

	// FileRoot is the local directory cutout "file" query parameters are
	// resolved against when they don't carry an s3:// prefix.
	FileRoot string

	// S3Region is the AWS region core/fileaccess's S3 client uses.
	S3Region string

	// SentryDSN, when non-empty, turns on error reporting to Sentry for
	// every Internal-class failure core/ibeerr.LogAndWriteError handles.
	// Empty leaves Sentry uninitialized entirely.
	SentryDSN string

	// EnvironmentName is reported to Sentry as the release environment
	// (e.g. "local", "prod"); it has no effect when SentryDSN is empty.
	EnvironmentName string

	// DefaultSizeUnit is the unit core/coords assumes for a "size" query
	// parameter that carries no trailing unit token.
	DefaultSizeUnit string

	// DeflateChunkBytes is the buffering granularity core/sink's
	// DeflateSink uses; 0 keeps that package's own default.
	DeflateChunkBytes int32

	// MaxMemorySinkBytes is loaded like every other field, but nothing
	// reads it: core/sink.MemorySink always applies its own fixed limit
	// (math.MaxInt32 bytes, reported as an ibeerr.Internal error).
	MaxMemorySinkBytes int32

	// LogLevel can be changed at runtime; if the process restarts it goes
	// back to whatever the config file/env says.
	LogLevel logger.LogLevel
}

// NewFromFile loads a JSON config file, then applies any IBE_CONFIG_*
// environment variable overrides.
func NewFromFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	return buildConfig(raw)
}

func buildConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides walks cfg's fields and, for each one with a matching
// IBE_CONFIG_<FieldName> environment variable, replaces the field's value
// with the env var's.
func applyEnvOverrides(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		name := t.Field(i).Name
		val, present := os.LookupEnv("IBE_CONFIG_" + name)
		if !present {
			continue
		}
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(val)
		case reflect.Int32, reflect.Int:
			n, err := strconv.Atoi(val)
			if err != nil {
				fmt.Printf("could not cast IBE_CONFIG_%s=%s to int\n", name, val)
				continue
			}
			field.SetInt(int64(n))
		}
	}
}

// Default returns a Config with the defaults cmd/ibecutout falls back to
// when no config file is supplied.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		MetricsAddr:     ":9090",
		FileRoot:        ".",
		DefaultSizeUnit: "arcsec",
		EnvironmentName: "local",
		LogLevel:        logger.LogInfo,
	}
}
