// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
)

// lookupEnv returns the parsed value of key, or def when the variable is unset,
// blank or malformed. Malformed values are logged and ignored.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}

	logger := log.WithComponent("config")
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Str(log.FieldKey, key).
			Str("value", redactEnv(key, raw)).
			Err(err).
			Msg("ignoring malformed environment variable")
		return def
	}
	logger.Debug().
		Str(log.FieldKey, key).
		Str("value", redactEnv(key, raw)).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

func redactEnv(key, value string) string {
	k := strings.ToLower(key)
	for _, marker := range []string{"key", "token", "password", "redis_url"} {
		if strings.Contains(k, marker) {
			return "***"
		}
	}
	return value
}

// ParseString reads a string variable with surrounding whitespace trimmed.
func ParseString(key, def string) string {
	return lookupEnv(key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt reads a base-10 integer.
func ParseInt(key string, def int) int {
	return lookupEnv(key, def, strconv.Atoi)
}

// ParseDuration reads a Go duration such as "90s".
func ParseDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(key, def, time.ParseDuration)
}

// ParseFloat reads a float64.
func ParseFloat(key string, def float64) float64 {
	return lookupEnv(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, def bool) bool {
	return lookupEnv(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}

// ParseList reads a comma separated list and drops blank entries.
func ParseList(key string, def []string) []string {
	return lookupEnv(key, def, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	})
}
