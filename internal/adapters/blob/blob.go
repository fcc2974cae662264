// Package blob stores rendered plots under stable object keys.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/okian/rinkxg/internal/domain/types"
)

// DefaultPrefix is the folder precomputed plots are written to.
const DefaultPrefix = "player_shot_plots"

// ErrNotFound means no object exists under the key.
var ErrNotFound = errors.New("blob not found")

// Store reads and writes whole objects.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)

	// Backend names the implementation for logs and metrics.
	Backend() string
}

// PlotKey returns the object key of a precomputed plot, e.g.
// player_shot_plots/8478402_ev_individual.png. Baseline plots keep the
// against_league file name used by existing buckets.
func PlotKey(prefix, playerID, strength string, mode types.Mode) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := string(mode)
	if mode == types.ModeAgainstBaseline {
		name = "against_league"
	}
	return path.Join(prefix, playerID+"_"+strength+"_"+name+".png")
}

// ManifestKey returns the object that records which source version the plots
// under prefix were built from.
func ManifestKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return path.Join(prefix, "manifest.json")
}

// Manifest describes the last complete precompute run under a prefix.
type Manifest struct {
	SourceVersion string    `json:"source_version"`
	RunID         string    `json:"run_id"`
	CompletedAt   time.Time `json:"completed_at"`
}

// PutManifest writes m under prefix.
func PutManifest(ctx context.Context, st Store, prefix string, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return st.Put(ctx, ManifestKey(prefix), data)
}

// GetManifest reads the manifest under prefix. A prefix that was never
// precomputed returns ErrNotFound.
func GetManifest(ctx context.Context, st Store, prefix string) (Manifest, error) {
	data, err := st.Get(ctx, ManifestKey(prefix))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// ContentType guesses the MIME type from the key suffix.
func ContentType(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	case strings.HasSuffix(s, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
