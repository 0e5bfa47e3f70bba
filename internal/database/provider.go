package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Opener opens a Store for a connection URL.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error)

var (
	backends   = map[string]Opener{}
	backendsMu sync.RWMutex
)

// RegisterBackend registers an Opener for one or more URL schemes.
// Backend packages call this from init() to avoid import cycles.
func RegisterBackend(opener Opener, schemes ...string) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	for _, scheme := range schemes {
		backends[scheme] = opener
	}
}

// Schemes returns the registered URL schemes, sorted.
func Schemes() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	schemes := make([]string, 0, len(backends))
	for s := range backends {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Scheme extracts the backend scheme from a connection URL.
// Bare file paths and "file:" DSNs are treated as sqlite.
func Scheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "file:") || !strings.Contains(rawURL, "://") {
		return "sqlite"
	}
	scheme, _, _ := strings.Cut(rawURL, "://")
	return strings.ToLower(scheme)
}

// Open opens the store selected by the scheme of cfg.URL.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	scheme := Scheme(cfg.URL)
	backendsMu.RLock()
	opener, ok := backends[scheme]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme %q (registered: %s)", scheme, strings.Join(Schemes(), ", "))
	}

	store, err := opener(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", scheme, err)
	}
	return store, nil
}
