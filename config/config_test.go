package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.Equal(cfg.GetBool(KeyPrune), true)
	is.Equal(cfg.GetDuration(KeyCheckpointInterval), 60*time.Second)
	is.Equal(cfg.GetDuration(KeyLogInterval), 5*time.Second)
	is.Equal(cfg.GetFloat64(KeyTableMemoryFraction), 0.25)
	is.Equal(cfg.CheckpointPath(), filepath.Join("data", "pruned.bin"))
	is.Equal(cfg.SQLitePath(), filepath.Join("data", "tablebase.db"))
	is.Equal(cfg.GetString(KeyReportFormat), "text")
	is.Equal(cfg.GetInt(KeySampleGames), 10000)
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	rest, err := cfg.Load("test", []string{"--prune=false", "--data-path", "/tmp/gb",
		"--checkpoint-interval", "2m", "extra"})
	is.NoErr(err)
	is.Equal(rest, []string{"extra"})
	is.Equal(cfg.GetBool(KeyPrune), false)
	is.Equal(cfg.GetDuration(KeyCheckpointInterval), 2*time.Minute)
	is.Equal(cfg.CheckpointPath(), "/tmp/gb/full.bin")
}

func TestLoadEnv(t *testing.T) {
	is := is.New(t)
	t.Setenv("GOBBLET_EXPORT_BATCH_SIZE", "42")
	t.Setenv("GOBBLET_DEBUG", "true")
	cfg := &Config{}
	_, err := cfg.Load("test", nil)
	is.NoErr(err)
	is.Equal(cfg.GetInt(KeyExportBatchSize), 42)
	is.True(cfg.GetBool(KeyDebug))
}

func TestLoadConfigFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "gobblet.yaml")
	is.NoErr(os.WriteFile(path, []byte("checkpoint-path: /x/cp.bin\nlog-interval: 1s\n"), 0o644))
	cfg := &Config{}
	_, err := cfg.Load("test", []string{"--config", path})
	is.NoErr(err)
	is.Equal(cfg.CheckpointPath(), "/x/cp.bin")
	is.Equal(cfg.GetDuration(KeyLogInterval), time.Second)
}

func TestBadFlag(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	_, err := cfg.Load("test", []string{"--no-such-flag"})
	is.True(err != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	cfg.Set(KeySQLitePath, "/abs/tb.db")
	cfg.AdjustRelativePaths("/opt/gobblet")
	is.Equal(cfg.GetString(KeyDataPath), "/opt/gobblet/data")
	is.Equal(cfg.SQLitePath(), "/abs/tb.db")
	is.True(len(cfg.SanitizedSettings()) > 0)
}
