package backend

import (
	"context"
	"fmt"

	"splitbill/internal/data"
	"splitbill/internal/data/memory"
	"splitbill/internal/data/remote"
	"splitbill/internal/log"
	"splitbill/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) remoteClient(config Config) (*remote.Client, error) {
	return remote.New(remote.Config{
		BaseURL:  config.BackendURL,
		Timeout:  config.BackendTimeout,
		Logger:   f.logger,
		Observer: config.Observer,
	})
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client, err := f.remoteClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote backend: %w", err)
	}
	f.logger.Info("Initialized remote backend", "base_url", config.BackendURL)
	return &BackendResult{Backend: client}, nil
}

// localProposer returns the remote chat endpoint when a backend URL is set,
// nil otherwise so the store keeps its heuristic proposer.
func (f *DefaultFactory) localProposer(config Config) (data.BillProposer, error) {
	if config.BackendURL == "" {
		return nil, nil
	}
	client, err := f.remoteClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote proposer: %w", err)
	}
	return client, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	seed, err := data.LoadSeed(config.SeedFile)
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, seed, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	proposer, err := f.localProposer(config)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if proposer != nil {
		repo.SetProposer(proposer)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"remote_proposer", proposer != nil)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	proposer, err := f.localProposer(config)
	if err != nil {
		return nil, err
	}
	if proposer != nil {
		store.SetProposer(proposer)
	}

	f.logger.Info("Initialized memory backend",
		"seed_file", config.SeedFile,
		"remote_proposer", proposer != nil)

	return &BackendResult{Backend: store}, nil
}
