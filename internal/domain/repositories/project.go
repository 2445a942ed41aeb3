package repositories

import (
	"context"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain/models"
)

// ProjectRepository defines data access operations for projects. Every
// project returned by any operation carries a freshly populated Users field;
// lookups that find nothing return nil rather than an error.
type ProjectRepository interface {
	// Add creates a new project. A duplicate id or name fails with a
	// conflict error; validation failures surface before any store call.
	Add(ctx context.Context, project *models.Project) (*models.Project, error)

	// Get resolves a project by id or, when no document carries that id,
	// by name. Returns nil when neither matches.
	Get(ctx context.Context, nameOrID string) (*models.Project, error)

	// NameExists reports whether Get(name) resolves a project.
	NameExists(ctx context.Context, name string) (bool, error)

	// Set upserts the full project document, last writer wins.
	Set(ctx context.Context, project *models.Project) (*models.Project, error)

	// List lazily yields every project in the tenant.
	List() *Iterator[models.Project]

	// ListByNameOrID lazily yields projects whose id or name matches any
	// entry of the given set. An empty set yields nothing.
	ListByNameOrID(nameOrIDs []string) *Iterator[models.Project]

	// ListByProvider lazily yields projects whose type references the
	// given provider.
	ListByProvider(providerID string) *Iterator[models.Project]

	// Remove deletes the project document and then removes the project
	// memberships that reference it. Returns nil when the project was
	// already gone. A cleanup failure propagates even though the project
	// document is already deleted.
	Remove(ctx context.Context, project *models.Project) (*models.Project, error)
}
