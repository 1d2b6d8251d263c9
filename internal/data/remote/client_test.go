package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"splitbill/internal/core"
)

type recordedCall struct {
	op  string
	err error
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (o *recordingObserver) ObserveBackendCall(op string, _ time.Duration, err error) {
	o.mu.Lock()
	o.calls = append(o.calls, recordedCall{op, err})
	o.mu.Unlock()
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	obs := &recordingObserver{}
	c, err := New(Config{BaseURL: srv.URL + "/api", Timeout: time.Second, Observer: obs})
	if err != nil {
		t.Fatal(err)
	}
	return c, obs
}

func TestClientReads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(core.Person{ID: 1, Name: "Alice", Email: "alice@example.com"})
	})
	mux.HandleFunc("GET /api/splits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"Groceries","people":[{"id":1,"name":"Alice"}]}]`))
	})
	mux.HandleFunc("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":1,"splitId":1,"title":"Walmart","transactionType":"GROCERY","billAmount":150.75,"date":"2023-10-01","items":[],"splits":[],"paidBy":[]},
			{"id":2,"splitId":2,"title":"Starbucks","transactionType":"DINING","billAmount":25.5,"date":"2023-10-03","items":[],"splits":[],"paidBy":[]}
		]`))
	})
	c, obs := newTestClient(t, mux)
	ctx := context.Background()

	u, err := c.User(ctx)
	if err != nil || u.Name != "Alice" || u.Email != "alice@example.com" {
		t.Fatalf("User = %+v, %v", u, err)
	}
	splits, err := c.Splits(ctx)
	if err != nil || len(splits) != 1 || splits[0].People[0].Name != "Alice" {
		t.Fatalf("Splits = %+v, %v", splits, err)
	}
	all, err := c.Transactions(ctx, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("Transactions = %+v, %v", all, err)
	}
	only, err := c.Transactions(ctx, 2)
	if err != nil || len(only) != 1 || only[0].Title != "Starbucks" {
		t.Fatalf("filtered Transactions = %+v, %v", only, err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(obs.calls) != 5 || obs.calls[0].op != OpUser {
		t.Fatalf("observer saw %+v", obs.calls)
	}
}

func TestClientWrites(t *testing.T) {
	var created core.Transaction
	var chat map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&created)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 9}`))
	})
	mux.HandleFunc("POST /api/chat/gpt", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&chat)
		w.Write([]byte(`{"title":"Lunch","transactionType":"DINING","billAmount":12,"splitId":1,"date":"2024-03-01","items":[],"splits":[],"paidBy":[]}`))
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	if err := c.CreateTransaction(ctx, core.Transaction{Title: "Walmart", SplitID: 1}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.Title != "Walmart" || created.SplitID != 1 {
		t.Fatalf("server got %+v", created)
	}

	tx, err := c.ProposeBill(ctx, core.ChatRequest{ID: 7, Type: core.MessageImageText, Sender: core.SenderUser, Message: "lunch 12"})
	if err != nil || tx.Title != "Lunch" || tx.TransactionType != core.Dining {
		t.Fatalf("ProposeBill = %+v, %v", tx, err)
	}
	for _, k := range []string{"id", "type", "sender", "imageUrl", "message"} {
		if _, ok := chat[k]; !ok {
			t.Errorf("chat request missing %q: %v", k, chat)
		}
	}
}

func TestClientErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/splits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	mux.HandleFunc("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c, obs := newTestClient(t, mux)

	_, err := c.User(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 500 || se.Body != "boom" {
		t.Fatalf("User err = %v", err)
	}
	if _, err := c.Splits(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Transactions(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	for _, call := range obs.calls {
		if call.err == nil {
			t.Fatalf("observer recorded success for %s", call.op)
		}
	}
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "/api"} {
		if _, err := New(Config{BaseURL: bad}); err == nil {
			t.Errorf("New(%q) should fail", bad)
		}
	}
}
