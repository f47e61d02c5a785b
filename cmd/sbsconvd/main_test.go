package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sbsconv/internal/testsupport"
)

func TestLoadLiveConfigRequiresDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.DestinationRoot = ""
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = loadLiveConfig(path)
	if err == nil || !strings.Contains(err.Error(), "destination_root") {
		t.Fatalf("expected destination_root error, got %v", err)
	}
}

func TestLoadLiveConfigEnablesLive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := loadLiveConfig(path)
	if err != nil {
		t.Fatalf("loadLiveConfig: %v", err)
	}
	if !loaded.Live.Enabled {
		t.Fatal("expected live mode enabled")
	}
}
