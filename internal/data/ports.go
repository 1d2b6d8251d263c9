// Package data declares the ports the application reads and writes bills
// through. Implementations live in the remote, memory and storage packages.
package data

import (
	"context"

	"splitbill/internal/core"
)

// Ports for outbound adapters.
type (
	// UserReader returns the person using the app.
	UserReader interface {
		User(ctx context.Context) (core.Person, error)
	}

	SplitLister interface {
		Splits(ctx context.Context) ([]core.Split, error)
	}

	// TransactionLister returns transactions, newest data from the backend
	// as-is. A non-zero splitID keeps only that group's transactions.
	TransactionLister interface {
		Transactions(ctx context.Context, splitID int64) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
	}

	// BillProposer turns a chat message into a proposed transaction.
	BillProposer interface {
		ProposeBill(ctx context.Context, req core.ChatRequest) (core.Transaction, error)
	}

	// ImageUploader stores a data URL image and returns its public URL.
	ImageUploader interface {
		Upload(ctx context.Context, dataURL string) (string, error)
	}

	// Pinger is implemented by backends that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Backend interface {
		UserReader
		SplitLister
		TransactionLister
		TransactionWriter
		BillProposer
	}
)
