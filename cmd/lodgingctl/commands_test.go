package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lodging-ledger/internal/auth"
	"lodging-ledger/internal/config"
	"lodging-ledger/internal/lodging/infrastructure"
)

const testSecret = "cli-secret"

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "lodging.json")
	configPath := filepath.Join(dir, "lodging.yaml")
	body := "storage:\n  backend: file\n  data_file: " + dataFile + "\n" +
		"auth:\n  jwt_secret: " + testSecret + "\n" +
		"timezone: UTC\n"
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLedgerCommands(t *testing.T) {
	configPath, _ := writeConfig(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"toggle", "2025-03-04"}, "2025-03: day 4 added"},
		{[]string{"toggle", "2025-03-05"}, "2025-03: day 5 added"},
		{[]string{"toggle", "2025-03-05"}, "2025-03: day 5 removed"},
		{[]string{"close", "2025-03", "10,5"}, "Closed 2025-03: 1 days, computed 0.00, paid 10.50"},
		{[]string{"show"}, "2025-03  1     closed"},
		{[]string{"reopen", "2025-03"}, "Reopened 2025-03"},
	}
	for _, tt := range tests {
		out, err := run(t, append(tt.args, "--config", configPath)...)
		if err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("%v: output %q does not contain %q", tt.args, out, tt.want)
		}
	}
}

func TestLedgerCommandErrors(t *testing.T) {
	configPath, _ := writeConfig(t)

	if _, err := run(t, "toggle", "04/03/2025", "--config", configPath); err == nil || !strings.Contains(err.Error(), "invalid date") {
		t.Fatalf("expected date error, got %v", err)
	}
	if _, err := run(t, "reopen", "2025-03", "--config", configPath); err == nil || !strings.Contains(err.Error(), "no lodging record") {
		t.Fatalf("expected missing month error, got %v", err)
	}
	if _, err := run(t, "toggle", "2025-03-01", "--config", configPath); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := run(t, "close", "2025-03", "5", "--config", configPath); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := run(t, "toggle", "2025-03-02", "--config", configPath); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected closed month error, got %v", err)
	}
}

func TestMigrateToSQLite(t *testing.T) {
	configPath, dir := writeConfig(t)
	if _, err := run(t, "toggle", "2025-01-10", "--config", configPath); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sqlitePath := filepath.Join(dir, "lodging.db")

	out, err := run(t, "migrate", "--to", "sqlite", "--sqlite-path", sqlitePath, "--config", configPath)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "Migrated 1 months from file to sqlite") {
		t.Fatalf("unexpected output: %q", out)
	}

	ctx := context.Background()
	store, err := infrastructure.Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, SQLitePath: sqlitePath})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()
	doc, err := store.Gateway.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record := doc.Months["2025-01"]; record == nil || !record.Days.Has(10) {
		t.Fatalf("migrated document missing day: %+v", doc.Months)
	}

	if _, err := run(t, "migrate", "--to", "tape", "--config", configPath); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestTokenCommand(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, "token", "--role", "Admin", "--subject", "ana", "--config", configPath)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(out), []byte(testSecret))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != string(auth.RoleAdmin) || claims.Subject != "ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := run(t, "token", "--role", "owner", "--config", configPath); err == nil {
		t.Fatalf("expected unknown role error")
	}
}
