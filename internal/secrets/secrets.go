// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. Each file in the directory is one secret: the
// filename is the key name and the trimmed file contents are the value.
//
// Supported key files: anthropic-api-key, embeddings-api-key,
// pubmed-api-key, crossref-mailto.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Get returns fallback if it is non-empty, otherwise the value stored
// under key, otherwise "". Config-file values take precedence over the
// secrets directory.
func (s Secrets) Get(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Keys returns the loaded key names in sorted order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every regular file in dir. A missing directory is not an
// error; Load returns an empty map. Unreadable files produce a warning
// on stderr but do not abort, so one bad key does not take down startup.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[entry.Name()] = value
		}
	}

	return s, nil
}
