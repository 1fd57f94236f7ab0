package engine

import (
	"context"
	"fmt"

	"github.com/avatar25/ArthaOS/internal/log"
	"github.com/avatar25/ArthaOS/internal/memory"
	"github.com/avatar25/ArthaOS/internal/storage"
	"github.com/avatar25/ArthaOS/internal/vault"
)

// BootstrapConfig carries what the engine needs to open the vault.
type BootstrapConfig struct {
	DBPath  string
	Workers int
}

// Bootstrap obtains the vault key, opens the store, hydrates the
// categorization memory (degrading to empty on failure), and wires the
// engine. Key or store failures surface as ErrVaultUnavailable.
func Bootstrap(ctx context.Context, cfg BootstrapConfig, keys vault.KeyProvider, logger *log.Logger) (*Engine, error) {
	key, err := keys.GetOrCreateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrVaultUnavailable, err)
	}

	repo, err := storage.NewSQLiteRepository(cfg.DBPath, key, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, fmt.Errorf("%w: open store: %v", vault.ErrVaultUnavailable, err)
	}

	mem := memory.Load(ctx, repo, logger.WithComponent(log.ComponentMemory))
	logger.InfoContext(ctx, "Vault opened",
		log.FieldOperation, log.OpStartup,
		"tokens", mem.Size())

	return New(repo, mem, logger.WithComponent(log.ComponentEngine), cfg.Workers), nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.repo.Close()
}
