// Package docstore provides a partitioned document store abstraction with
// pluggable backends: Azure Cosmos DB, Postgres (JSONB document table),
// MongoDB, and an in-memory store for tests and local development.
//
// Documents are raw JSON addressed by (container, partition, id). The
// partition value is the tenant name; every document of a tenant co-resides
// in its partition. Queries are structured filters compiled per backend with
// bind parameters only.
package docstore

import (
	"context"
)

// Container names used by the repositories. Each entity type lives in its
// own container; all containers share the tenant partition axis.
const (
	ContainerProjects = "projects"
	ContainerUsers    = "users"
)

// defaultPageSize bounds query pages when no page size is configured.
const defaultPageSize = 100

// Container describes a named container and the document paths whose values
// must be unique within a partition. Uniqueness is enforced by the store and
// surfaces as a conflict, never pre-checked.
type Container struct {
	Name       string
	UniqueKeys []string
}

// containers is the fixed set EnsureContainers provisions.
var containers = []Container{
	{Name: ContainerProjects, UniqueKeys: []string{"name"}},
	{Name: ContainerUsers},
}

// Store is a partitioned document store. Implementations report a missing
// document with domain.ErrNotFound and a duplicate id or unique-key value
// with domain.ErrConflict, so callers can distinguish outcomes with
// errors.Is. Any other store failure passes through untranslated.
type Store interface {
	// EnsureContainers provisions the containers and their unique-key
	// constraints. Safe to call repeatedly.
	EnsureContainers(ctx context.Context) error

	// Read returns the document with the given id, or domain.ErrNotFound.
	Read(ctx context.Context, container, partition, id string) ([]byte, error)

	// Create inserts a new document and returns the stored representation.
	// Fails with domain.ErrConflict when the id or a unique-key value is
	// already taken.
	Create(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error)

	// Upsert inserts or fully replaces the document with the given id and
	// returns the stored representation. Replacement is last-writer-wins;
	// colliding with another document's unique-key value fails with
	// domain.ErrConflict.
	Upsert(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error)

	// Delete removes the document with the given id, or returns
	// domain.ErrNotFound when no such document exists.
	Delete(ctx context.Context, container, partition, id string) error

	// Query runs a structured filter against one partition. Building the
	// pager performs no I/O; compilation problems surface on the first
	// NextPage call.
	Query(container, partition string, query Query) Pager

	// Close releases the backend connection.
	Close(ctx context.Context) error
}

// Pager pages through a query result. Callers loop while More reports true
// and fetch with NextPage; abandoning a pager early requires Close to
// release the underlying cursor.
type Pager interface {
	More() bool
	NextPage(ctx context.Context) ([][]byte, error)
	Close() error
}

// errPager defers a query construction error to the first NextPage call.
type errPager struct {
	err  error
	done bool
}

func (p *errPager) More() bool { return !p.done }

func (p *errPager) NextPage(_ context.Context) ([][]byte, error) {
	p.done = true
	return nil, p.err
}

func (p *errPager) Close() error {
	p.done = true
	return nil
}
