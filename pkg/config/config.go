package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// Contraction tunes the self ordering heuristic. the constants affect hierarchy quality only,
// any non negative value produces a correct hierarchy.
type Contraction struct {
	// a popped vertex whose current score is worse than its heap score by more than this is re-queued.
	SignificanceThreshold float64 `yaml:"significance-threshold"`
	// added to the score of every neighbour of a contracted vertex.
	ClusteringPenalty float64 `yaml:"clustering-penalty"`
	// per iteration score tables, only for graphs with at most DebugMaxVertices vertices.
	Debug            bool `yaml:"debug"`
	DebugMaxVertices int  `yaml:"debug-max-vertices"`
}

type Config struct {
	Contraction Contraction `yaml:"contraction"`
	Input       string      `yaml:"input"`
	Output      string      `yaml:"output"`
	KVDir       string      `yaml:"kv-dir"`
	KVEngine    string      `yaml:"kv-engine"`
	LogLevel    string      `yaml:"log-level"`
}

func Default() Config {
	return Config{
		Contraction: Contraction{
			SignificanceThreshold: 0.5,
			ClusteringPenalty:     1.0,
			Debug:                 false,
			DebugMaxVertices:      50,
		},
		Output:   "./contraction_info.zst",
		KVDir:    "./navigatorx_db",
		KVEngine: "badger",
		LogLevel: "info",
	}
}

// ReadConfig reads a yaml file on top of Default, keys missing from the file keep their default.
func ReadConfig(file string) (Config, error) {
	slog.Info("Reading config file", "file", file)
	cfg := Default()
	data, err := os.ReadFile(file)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", file, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Contraction.SignificanceThreshold < 0 {
		errs = append(errs, fmt.Errorf("significance-threshold must not be negative, got %v", c.Contraction.SignificanceThreshold))
	}
	if c.Contraction.ClusteringPenalty < 0 {
		errs = append(errs, fmt.Errorf("clustering-penalty must not be negative, got %v", c.Contraction.ClusteringPenalty))
	}
	if c.Contraction.DebugMaxVertices < 0 {
		errs = append(errs, fmt.Errorf("debug-max-vertices must not be negative, got %d", c.Contraction.DebugMaxVertices))
	}
	if c.KVEngine != "badger" && c.KVEngine != "pebble" {
		errs = append(errs, fmt.Errorf("kv-engine must be badger or pebble, got %q", c.KVEngine))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
