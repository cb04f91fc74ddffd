// Package config loads settings from flags, GOBBLET_* environment variables
// and an optional YAML file, in that order of precedence.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyDebug               = "debug"
	KeyConfigFile          = "config"
	KeyDataPath            = "data-path"
	KeyCheckpointPath      = "checkpoint-path"
	KeyPrune               = "prune"
	KeyCheckpointInterval  = "checkpoint-interval"
	KeyLogInterval         = "log-interval"
	KeyTableMemoryFraction = "table-memory-fraction"
	KeySQLitePath          = "sqlite-path"
	KeyExportBatchSize     = "export-batch-size"
	KeyCPUProfile          = "cpu-profile"
	KeyMemProfile          = "mem-profile"
	KeyReportFormat        = "format"
	KeySampleGames         = "sample-games"
	KeyDistances           = "distances"
)

const EnvPrefix = "GOBBLET"

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a Config holding only the defaults.
func DefaultConfig() Config {
	c := Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(KeyDebug, false)
	c.SetDefault(KeyDataPath, "./data")
	c.SetDefault(KeyCheckpointPath, "")
	c.SetDefault(KeyPrune, true)
	c.SetDefault(KeyCheckpointInterval, 60*time.Second)
	c.SetDefault(KeyLogInterval, 5*time.Second)
	c.SetDefault(KeyTableMemoryFraction, 0.25)
	c.SetDefault(KeySQLitePath, "")
	c.SetDefault(KeyExportBatchSize, 100000)
	c.SetDefault(KeyCPUProfile, "")
	c.SetDefault(KeyMemProfile, "")
	c.SetDefault(KeyReportFormat, "text")
	c.SetDefault(KeySampleGames, 10000)
	c.SetDefault(KeyDistances, false)
}

// Flags declares the command-line flags every binary accepts.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool(KeyDebug, false, "debug logging on")
	fs.String(KeyConfigFile, "", "path to a YAML config file")
	fs.String(KeyDataPath, "./data", "directory for checkpoints and exports")
	fs.String(KeyCheckpointPath, "", "checkpoint file (default <data-path>/pruned.bin or full.bin)")
	fs.Bool(KeyPrune, true, "use alpha-beta pruning; false solves every reachable position")
	fs.Duration(KeyCheckpointInterval, 60*time.Second, "how often to save a checkpoint while solving")
	fs.Duration(KeyLogInterval, 5*time.Second, "how often to log solver progress")
	fs.Float64(KeyTableMemoryFraction, 0.25, "fraction of system memory to presize the table for")
	fs.String(KeySQLitePath, "", "SQLite tablebase (default <data-path>/tablebase.db)")
	fs.Int(KeyExportBatchSize, 100000, "rows between export progress lines")
	fs.String(KeyCPUProfile, "", "write a CPU profile here")
	fs.String(KeyMemProfile, "", "write a heap profile here")
	fs.String(KeyReportFormat, "text", "tbstats output: text or yaml")
	fs.Int(KeySampleGames, 10000, "random games sampled for branching statistics")
	fs.Bool(KeyDistances, false, "compute distance-to-win for every decided position")
	return fs
}

// Load parses args and layers environment and file settings under them. It
// returns the positional arguments left after flag parsing.
func (c *Config) Load(name string, args []string) ([]string, error) {
	if c.Viper == nil {
		c.Viper = viper.New()
		c.setDefaults()
	}
	fs := Flags(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.SetEnvPrefix(EnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	if err := c.BindPFlags(fs); err != nil {
		return nil, err
	}
	if f := c.GetString(KeyConfigFile); f != "" {
		c.SetConfigFile(f)
		if err := c.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return fs.Args(), nil
}

// CheckpointPath resolves the checkpoint file, which defaults by solve mode.
func (c *Config) CheckpointPath() string {
	if p := c.GetString(KeyCheckpointPath); p != "" {
		return p
	}
	name := "pruned.bin"
	if !c.GetBool(KeyPrune) {
		name = "full.bin"
	}
	return filepath.Join(c.GetString(KeyDataPath), name)
}

func (c *Config) SQLitePath() string {
	if p := c.GetString(KeySQLitePath); p != "" {
		return p
	}
	return filepath.Join(c.GetString(KeyDataPath), "tablebase.db")
}

// AdjustRelativePaths anchors relative data paths at basePath.
func (c *Config) AdjustRelativePaths(basePath string) {
	for _, k := range []string{KeyDataPath, KeyCheckpointPath, KeySQLitePath} {
		p := c.GetString(k)
		if p != "" && !filepath.IsAbs(p) {
			c.Set(k, filepath.Join(basePath, p))
		}
	}
}

// SanitizedSettings is everything suitable for a log line.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
