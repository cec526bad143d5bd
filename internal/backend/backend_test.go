package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"saldo/internal/config"
	"saldo/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		app     *config.Config
		want    BackendType
		wantErr bool
	}{
		{name: "nil config", app: nil, wantErr: true},
		{name: "memory", app: &config.Config{DataBackend: "memory"}, want: MemoryBackend},
		{name: "sqlite", app: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, want: SQLiteBackend},
		{name: "sheets is not a store", app: &config.Config{DataBackend: "sheets"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.app)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Type != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Type)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Type: SQLiteBackend}).Validate(); err == nil {
		t.Error("expected error for sqlite without path")
	}
	err := (Config{Type: "postgres"}).Validate()
	if err == nil || !strings.Contains(err.Error(), "[sqlite memory]") {
		t.Errorf("expected error listing valid backends, got %v", err)
	}
	if err := (Config{Type: MemoryBackend}).Validate(); err != nil {
		t.Errorf("memory backend should validate: %v", err)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.csv")
	csv := "date,title,amount,type\n2024-01-05,Salary,3000.00,income\n2024-01-06,Rent,-900,expense\n"
	if err := os.WriteFile(seed, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	res, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: seed})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	txs, err := res.Store.ListTransactions(ctx)
	if err != nil || len(txs) != 2 {
		t.Fatalf("expected 2 seeded transactions, got %d (%v)", len(txs), err)
	}
	if err := res.Ready(ctx); err != nil {
		t.Errorf("memory backend should be ready: %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "saldo.db")
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if err := res.Ready(ctx); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}
