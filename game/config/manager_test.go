package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mars-rovers/game/engine"
)

func createValidConfig() *engine.MissionConfig {
	return &engine.MissionConfig{
		Name:          "Test Mission",
		Description:   "Test configuration",
		Width:         5,
		Height:        3,
		LostPositions: []engine.Position{{X: 3, Y: 3}},
		Rovers: []engine.RoverPlan{
			{X: 0, Y: 3, Orientation: engine.West, Instructions: "LLFFFLFLFL"},
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.MissionConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		sample := createValidConfig()
		sample.Name = "Sample"
		writeConfigFile(t, dir, "sample", sample)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Sample" {
			t.Errorf("Expected sample.json as default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Width != 5 || def.Height != 3 {
			t.Errorf("Expected built-in 5x3 default, got %+v", def)
		}
	})

	t.Run("first valid config when sample missing", func(t *testing.T) {
		dir := t.TempDir()
		other := createValidConfig()
		other.Name = "Other"
		writeConfigFile(t, dir, "other", other)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Other" {
			t.Errorf("Expected 'Other' as default, got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	large := createValidConfig()
	large.Name = "Large"
	large.Width = 40
	large.Height = 20
	writeConfigFile(t, dir, "large", large)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("large")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Width != 40 || config.Height != 20 {
			t.Errorf("Expected 40x20, got %dx%d", config.Width, config.Height)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("large.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Large" {
			t.Errorf("Expected 'Large', got %q", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("large")
		config2, err := manager.LoadConfig("large")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		invalid := createValidConfig()
		invalid.Width = 0
		writeConfigFile(t, dir, "invalid", invalid)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)
		if _, err := manager.LoadConfig("broken"); err == nil {
			t.Error("Expected parse error")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"zeta", "alpha"} {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, name, config)
	}

	invalid := createValidConfig()
	invalid.Description = ""
	writeConfigFile(t, dir, "invalid", invalid)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.Mkdir(filepath.Join(dir, "nested.json"), 0755)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}

	if len(configs) != 2 {
		t.Fatalf("Expected 2 valid configs, got %d", len(configs))
	}
	if configs[0].ConfigID != "alpha" || configs[1].ConfigID != "zeta" {
		t.Errorf("Expected sorted IDs [alpha zeta], got [%s %s]", configs[0].ConfigID, configs[1].ConfigID)
	}

	info := configs[0]
	if info.Filename != "alpha.json" || info.Width != 5 || info.Height != 3 {
		t.Errorf("Unexpected config info: %+v", info)
	}
	if info.SeededLost != 1 || info.PlannedRovers != 1 {
		t.Errorf("Expected 1 seed and 1 planned rover, got %d and %d", info.SeededLost, info.PlannedRovers)
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "sample", createValidConfig())

	other := createValidConfig()
	other.Name = "Other"
	writeConfigFile(t, dir, "other", other)

	manager, _ := NewManager(dir)

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Other" {
		t.Errorf("Expected 'Other', got %q", manager.GetDefault().Name)
	}

	if err := manager.SetDefault("missing"); err != ErrConfigNotFound {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	config := createValidConfig()
	config.Name = "Saved"

	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	loaded, err := manager.LoadConfig("saved")
	if err != nil {
		t.Fatalf("LoadConfig after save failed: %v", err)
	}
	if loaded != config {
		t.Error("Expected saved config to be cached")
	}

	invalid := createValidConfig()
	invalid.Rovers[0].Orientation = "X"
	if err := manager.SaveConfig("bad", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for path name, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "sample", createValidConfig())
	manager, _ := NewManager(dir)

	before, _ := manager.LoadConfig("sample")

	changed := createValidConfig()
	changed.Width = 9
	writeConfigFile(t, dir, "sample", changed)

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}

	after, _ := manager.LoadConfig("sample")
	if after == before || after.Width != 9 {
		t.Errorf("Expected reloaded config with width 9, got %+v", after)
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "sample", createValidConfig())
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadConfig("sample"); err != nil {
				t.Errorf("concurrent load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
