// Package remote talks to the bill backend over HTTP JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"splitbill/internal/core"
	"splitbill/internal/log"
)

const (
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Operation names, also used as metric labels.
const (
	OpUser              = "user"
	OpSplits            = "splits"
	OpTransactions      = "transactions"
	OpCreateTransaction = "create_transaction"
	OpProposeBill       = "propose_bill"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Observer receives the outcome of every backend call.
type Observer interface {
	ObserveBackendCall(op string, d time.Duration, err error)
}

type Config struct {
	BaseURL string
	// Timeout bounds each call on top of the caller's context; zero disables
	// it.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
	Observer   Observer
}

// Client implements data.Backend against the remote API. Calls are not
// retried.
type Client struct {
	base     *url.URL
	http     *http.Client
	timeout  time.Duration
	logger   *log.Logger
	observer Observer
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("remote: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		base:     base,
		http:     hc,
		timeout:  cfg.Timeout,
		logger:   logger.WithComponent(log.ComponentRemote),
		observer: cfg.Observer,
	}, nil
}

func (c *Client) User(ctx context.Context) (core.Person, error) {
	var p core.Person
	err := c.do(ctx, OpUser, http.MethodGet, "user", nil, &p)
	return p, err
}

func (c *Client) Splits(ctx context.Context) ([]core.Split, error) {
	var out []core.Split
	if err := c.do(ctx, OpSplits, http.MethodGet, "splits", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transactions fetches every transaction; the backend has no split filter so
// a non-zero splitID is applied here.
func (c *Client) Transactions(ctx context.Context, splitID int64) ([]core.Transaction, error) {
	var all []core.Transaction
	if err := c.do(ctx, OpTransactions, http.MethodGet, "transactions", nil, &all); err != nil {
		return nil, err
	}
	if splitID == 0 {
		return all, nil
	}
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.SplitID == splitID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// CreateTransaction posts tx. The response body is ignored.
func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	return c.do(ctx, OpCreateTransaction, http.MethodPost, "transactions", tx, nil)
}

// ProposeBill sends a chat message and decodes the reply as a transaction.
func (c *Client) ProposeBill(ctx context.Context, req core.ChatRequest) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, OpProposeBill, http.MethodPost, "chat/gpt", req, &tx)
	return tx, err
}

// Ping reports whether the backend answers the user endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.User(ctx)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendCall(op, time.Since(start), err)
		}
		if err != nil {
			c.logger.WarnContext(ctx, "Backend call failed",
				log.FieldOperation, op,
				log.FieldDuration, time.Since(start).Milliseconds(),
				log.FieldError, err)
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(&url.URL{Path: path}).String(), rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
