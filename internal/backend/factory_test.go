package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"splitbill/internal/config"
	"splitbill/internal/core"
	"splitbill/internal/data/memory"
	"splitbill/internal/data/remote"
	"splitbill/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedFile: "seed.json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.SeedFile != "seed.json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"remote", Config{Type: RemoteBackend, BackendURL: "http://x/api"}, false},
		{"remote without url", Config{Type: RemoteBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Backend.(*memory.Store); !ok {
			t.Fatalf("got %T", res.Backend)
		}
	})

	t.Run("remote", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: RemoteBackend, BackendURL: "http://localhost:5000/api"})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Backend.(*remote.Client); !ok {
			t.Fatalf("got %T", res.Backend)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db", "splitbill.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		if _, ok := res.Backend.(*storage.SQLiteRepository); !ok {
			t.Fatalf("got %T", res.Backend)
		}
		splits, err := res.Backend.Splits(ctx)
		if err != nil || len(splits) != 5 {
			t.Fatalf("expected seeded splits, got %d (%v)", len(splits), err)
		}
	})
}

func TestLocalBackendUsesRemoteProposer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/gpt" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(core.Transaction{Title: "From assistant", SplitID: 1})
	}))
	defer srv.Close()

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:       MemoryBackend,
		BackendURL: srv.URL + "/api",
	})
	if err != nil {
		t.Fatal(err)
	}
	tx, err := res.Backend.ProposeBill(context.Background(), core.ChatRequest{Message: "lunch 12"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Title != "From assistant" {
		t.Fatalf("proposal came from %q, want the remote endpoint", tx.Title)
	}
}
