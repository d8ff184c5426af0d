package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coldwire/irc/casefold"
)

func TestLoadConfigMergesOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, []byte("casemapping = \"ascii\"\n\n[flood]\nbucket_size = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Flood.BucketSize != 10 {
		t.Fatalf("expected overridden bucket size 10, got %d", c.Flood.BucketSize)
	}
	if c.Flood.MaxQueueSize != DefaultConfig().Flood.MaxQueueSize {
		t.Fatalf("expected default max queue size to survive a partial override")
	}
	if c.CasemappingDefault() != casefold.ASCII {
		t.Fatalf("expected ascii casemapping default")
	}
}
