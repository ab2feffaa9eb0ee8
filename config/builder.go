package config

import (
	"sort"

	"github.com/jpalmerr/coursestore"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The result configures the API URL, headers, timeout and port; callers
// append their own options (logger, callbacks) before calling
// coursestore.New.
func BuildOptions(cfg *Config) []coursestore.Option {
	opts := []coursestore.Option{
		coursestore.WithAPIURL(cfg.API.URL),
		coursestore.WithPort(cfg.Port),
	}

	if cfg.API.Timeout != 0 {
		opts = append(opts, coursestore.WithTimeout(cfg.API.Timeout.Duration()))
	}

	if len(cfg.API.Headers) > 0 {
		opts = append(opts, coursestore.WithHeaders(mapToKeyValuePairs(cfg.API.Headers)...))
	}

	return opts
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
