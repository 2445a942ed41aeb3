// Package repository implements the domain repositories on top of the
// partitioned document store.
package repository

import (
	"log/slog"

	"github.com/TaffyWrinkle/TeamCloud/internal/docstore"
)

// Config wires a repository implementation to the document store. Tenant is
// the partition value for every operation.
type Config struct {
	Store  docstore.Store
	Tenant string
	Logger *slog.Logger
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
