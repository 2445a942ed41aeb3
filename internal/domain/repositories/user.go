package repositories

import (
	"context"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain/models"
)

// UserRepository owns user documents and their project memberships. Lookups
// that find nothing return nil rather than an error.
type UserRepository interface {
	// Add creates a new user. A duplicate id fails with a conflict error.
	Add(ctx context.Context, user *models.User) (*models.User, error)

	// Get returns the user with the given id, or nil.
	Get(ctx context.Context, id string) (*models.User, error)

	// Set upserts the full user document, last writer wins.
	Set(ctx context.Context, user *models.User) (*models.User, error)

	// List lazily yields every user in the tenant.
	List() *Iterator[models.User]

	// ListByProject lazily yields the users holding a membership in the
	// given project.
	ListByProject(projectID string) *Iterator[models.User]

	// Remove deletes the user document. Returns nil when the user was
	// already gone.
	Remove(ctx context.Context, user *models.User) (*models.User, error)

	// RemoveProjectMembership drops one user's membership in the project
	// and persists the change. Removing an absent membership is a no-op.
	RemoveProjectMembership(ctx context.Context, user *models.User, projectID string) (*models.User, error)

	// RemoveProjectMemberships drops the project's memberships from every
	// user that holds one. Used as the compensating action after a project
	// delete; idempotent when no memberships exist.
	RemoveProjectMemberships(ctx context.Context, projectID string) error
}
