package mconfig

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/spf13/pflag"
)

func TestDefaultAppConfig(t *testing.T) {
	config := DefaultAppConfig()
	if config.ReduceDegree != 0.5 || config.ReduceLength != 0.05 {
		t.Errorf("reduce tolerance = %f, %f", config.ReduceDegree, config.ReduceLength)
	}
	if config.IkEpsilon != 0.1 || config.IkNoiseFloor != 0.05 {
		t.Errorf("ik = %f, %f", config.IkEpsilon, config.IkNoiseFloor)
	}
	if config.MaxWorkersHeavy != 5 || config.MaxWorkersLight != 32 {
		t.Errorf("workers = %d, %d", config.MaxWorkersHeavy, config.MaxWorkersLight)
	}
}

func TestLoadAppConfig_Override(t *testing.T) {
	appFiles := fstest.MapFS{
		"app/app_config.yaml": &fstest.MapFile{Data: []byte("name: Embedded\nlog_level: debug\n")},
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("reduce_degree: 1.5\nlog_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("lang", "ja", "")
	if err := flags.Parse([]string{"--lang", "en"}); err != nil {
		t.Fatal(err)
	}

	config, err := LoadAppConfig(appFiles, configPath, flags)
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}

	if config.Name != "Embedded" {
		t.Errorf("Name = %s", config.Name)
	}
	if config.LogLevel != "warn" {
		t.Errorf("LogLevel = %s", config.LogLevel)
	}
	if config.ReduceDegree != 1.5 {
		t.Errorf("ReduceDegree = %f", config.ReduceDegree)
	}
	if config.Lang != "en" {
		t.Errorf("Lang = %s", config.Lang)
	}
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	if _, err := LoadAppConfig(nil, filepath.Join(t.TempDir(), "none.yaml"), nil); err == nil {
		t.Errorf("LoadAppConfig() should fail for missing file")
	}
}
