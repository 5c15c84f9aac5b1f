package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	// All required fields filled, expect no error and defaults applied.
	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}

	if cnf.Sync.WindowDays != DEFAULT_SYNC_WINDOW_DAYS {
		t.Errorf("Expected default sync window %d, got %d", DEFAULT_SYNC_WINDOW_DAYS, cnf.Sync.WindowDays)
	}

	if cnf.Sync.IntervalMins != 30 {
		t.Errorf("Expected default sync interval 30, got %d", cnf.Sync.IntervalMins)
	}

	if cnf.Providers.TimeoutSec != 30 {
		t.Errorf("Expected default provider timeout 30, got %d", cnf.Providers.TimeoutSec)
	}

	if cnf.Providers.Plaid.Environment != "sandbox" {
		t.Errorf("Expected default plaid environment sandbox, got %s", cnf.Providers.Plaid.Environment)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	content := Configuration{
		ProjectName: "Tally Test",
		DataSource:  DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/tally?sslmode=disable"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
		Sync:        SyncConfig{WindowDays: 14},
	}

	f, err := os.CreateTemp("", "tally*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := json.NewEncoder(f).Encode(content); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	if err := loadConfigFromFile(f.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	cnf, err := Fetch()
	if err != nil {
		t.Fatal(err)
	}

	if cnf.ProjectName != "Tally Test" {
		t.Errorf("Expected project name Tally Test, got %s", cnf.ProjectName)
	}

	if cnf.Sync.WindowDays != 14 {
		t.Errorf("Expected sync window 14, got %d", cnf.Sync.WindowDays)
	}
}
