package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codalotl/blockdiff/internal/diff"
	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/q/cascade"
)

// Config is blockdiff's configuration, loaded (lowest priority first) from defaults, ~/.blockdiff/config.json, the nearest .blockdiff/config.json, the nearest
// .env file, and BLOCKDIFF_* environment variables.
type Config struct {
	StatePath   string          `json:"statepath"`             // session state file
	MaxHistory  int             `json:"maxhistory"`            // undo history cap
	Granularity string          `json:"granularity"`           // "word" or "char"
	SnapshotDir string          `json:"snapshotdir"`           // directory store for named snapshots
	DatabaseURL string          `json:"databaseurl,omitempty"` // if set, named snapshots live in Postgres instead
	ListenAddr  string          `json:"listenaddr"`
	LargeDiff   LargeDiffConfig `json:"largediff"`
	LogFile     string          `json:"logfile,omitempty"`
	Color       string          `json:"color"` // "auto", "always", or "never"
}

// LargeDiffConfig sets the thresholds past which diffs are summary-only. Zero disables a threshold.
type LargeDiffConfig struct {
	MaxBlocks int `json:"maxblocks"`
	MaxTokens int `json:"maxtokens"`
}

const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

var configDefaults = map[string]any{
	"statepath":   filepath.Join(".blockdiff", "session.json"),
	"maxhistory":  100,
	"granularity": string(diff.GranularityWord),
	"snapshotdir": filepath.Join(".blockdiff", "snapshots"),
	"listenaddr":  "127.0.0.1:7878",
	"color":       colorAuto,
}

// configEnv maps each config key to its environment variable.
var configEnv = map[string]string{
	"statepath":           "BLOCKDIFF_STATEPATH",
	"maxhistory":          "BLOCKDIFF_MAXHISTORY",
	"granularity":         "BLOCKDIFF_GRANULARITY",
	"snapshotdir":         "BLOCKDIFF_SNAPSHOTDIR",
	"databaseurl":         "BLOCKDIFF_DATABASEURL",
	"listenaddr":          "BLOCKDIFF_LISTENADDR",
	"largediff.maxblocks": "BLOCKDIFF_LARGEDIFF_MAXBLOCKS",
	"largediff.maxtokens": "BLOCKDIFF_LARGEDIFF_MAXTOKENS",
	"logfile":             "BLOCKDIFF_LOGFILE",
	"color":               "BLOCKDIFF_COLOR",
}

// loadConfig loads the configuration. The returned Loader reports where each key came from.
func loadConfig() (Config, *cascade.Loader, error) {
	loader := cascade.New().
		WithDefaults(configDefaults).
		WithJSONFile(cascade.ExpandPath(filepath.Join("~", ".blockdiff", "config.json"))).
		WithNearestJSONFile(filepath.Join(".blockdiff", "config.json"), "").
		WithNearestDotEnv(".env", "", configEnv).
		WithEnv(configEnv)

	var cfg Config
	if err := loader.StrictlyLoad(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, nil, err
	}
	return cfg, loader, nil
}

func validateConfig(cfg Config) error {
	if cfg.MaxHistory <= 0 {
		return fmt.Errorf("invalid configuration: maxhistory must be > 0 (got %d)", cfg.MaxHistory)
	}
	if _, err := diff.ParseGranularity(cfg.Granularity); err != nil {
		return fmt.Errorf("invalid configuration: granularity: %w", err)
	}
	switch cfg.Color {
	case colorAuto, colorAlways, colorNever:
	default:
		return fmt.Errorf("invalid configuration: color must be auto, always, or never (got %q)", cfg.Color)
	}
	if cfg.LargeDiff.MaxBlocks < 0 || cfg.LargeDiff.MaxTokens < 0 {
		return fmt.Errorf("invalid configuration: largediff thresholds must be >= 0")
	}
	if strings.TrimSpace(cfg.StatePath) == "" {
		return fmt.Errorf("invalid configuration: statepath is empty")
	}
	return nil
}

// diffOptions returns the diff options cfg selects. granularity, if non-empty, overrides cfg.Granularity.
func (cfg Config) diffOptions(granularity string) (*docdiff.Options, error) {
	if granularity == "" {
		granularity = cfg.Granularity
	}
	g, err := diff.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	return &docdiff.Options{
		Granularity: g,
		LargeDiff:   docdiff.LargeDiff{MaxBlocks: cfg.LargeDiff.MaxBlocks, MaxTokens: cfg.LargeDiff.MaxTokens},
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeConfigSources prints one "key: source" line per config key, sorted by key.
func writeConfigSources(w io.Writer, loader *cascade.Loader) {
	keys := make([]string, 0, len(configEnv))
	for k := range configEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := loader.Provenance(k)
		src := "unset"
		if p.IsSet() {
			src = p.Source
			if p.Identifier != "" {
				src += " " + p.Identifier
			}
		}
		fmt.Fprintf(w, "%s: %s\n", k, src)
	}
}
