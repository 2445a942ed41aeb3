package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TaffyWrinkle/TeamCloud/internal/docstore"
	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
	"github.com/TaffyWrinkle/TeamCloud/internal/domain/models"
	"github.com/TaffyWrinkle/TeamCloud/internal/domain/repositories"
)

// UsersRepository implements the UserRepository interface on the document
// store. It is the authoritative source for project memberships.
type UsersRepository struct {
	store  docstore.Store
	tenant string
	logger *slog.Logger
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(config *Config) repositories.UserRepository {
	return &UsersRepository{
		store:  config.Store,
		tenant: config.Tenant,
		logger: config.logger(),
	}
}

// Add creates a new user.
func (r *UsersRepository) Add(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", errors.New("user is required"))
	}
	r.prepare(user)
	if err := user.Validate(); err != nil {
		return nil, domain.NewValidationError("user", err)
	}

	doc, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	stored, err := r.store.Create(ctx, docstore.ContainerUsers, r.tenant, user.ID, doc)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("user %q already exists", user.ID),
				ResourceType: "user",
				ResourceID:   user.ID,
			}
		}
		return nil, fmt.Errorf("add user: %w", err)
	}

	created, err := decodeUser(stored)
	if err != nil {
		return nil, err
	}
	r.logger.Info("user created", "id", created.ID)
	return created, nil
}

// Get returns the user with the given id, or nil.
func (r *UsersRepository) Get(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Read(ctx, docstore.ContainerUsers, r.tenant, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(doc)
}

// Set upserts the full user document keyed by its id, last writer wins.
func (r *UsersRepository) Set(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", errors.New("user is required"))
	}
	r.prepare(user)
	if err := user.Validate(); err != nil {
		return nil, domain.NewValidationError("user", err)
	}

	doc, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	stored, err := r.store.Upsert(ctx, docstore.ContainerUsers, r.tenant, user.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("set user: %w", err)
	}

	updated, err := decodeUser(stored)
	if err != nil {
		return nil, err
	}
	r.logger.Info("user updated", "id", updated.ID)
	return updated, nil
}

// List lazily yields every user in the tenant.
func (r *UsersRepository) List() *repositories.Iterator[models.User] {
	pager := r.store.Query(docstore.ContainerUsers, r.tenant, docstore.Query{})
	return repositories.NewIterator[models.User](pager, nil)
}

// ListByProject lazily yields the users holding a membership in the given
// project.
func (r *UsersRepository) ListByProject(projectID string) *repositories.Iterator[models.User] {
	query := docstore.Where(docstore.Contains("projectMemberships", map[string]any{"projectId": projectID}))
	pager := r.store.Query(docstore.ContainerUsers, r.tenant, query)
	return repositories.NewIterator[models.User](pager, nil)
}

// Remove deletes the user document. Deleting an already-deleted user
// returns nil.
func (r *UsersRepository) Remove(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", errors.New("user is required"))
	}
	if err := r.store.Delete(ctx, docstore.ContainerUsers, r.tenant, user.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("remove user: %w", err)
	}
	r.logger.Info("user deleted", "id", user.ID)
	return user, nil
}

// RemoveProjectMembership drops one user's membership in the project and
// persists the change. Removing an absent membership changes nothing.
func (r *UsersRepository) RemoveProjectMembership(ctx context.Context, user *models.User, projectID string) (*models.User, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", errors.New("user is required"))
	}
	if !user.RemoveMembership(projectID) {
		return user, nil
	}
	return r.Set(ctx, user)
}

// RemoveProjectMemberships drops the project's memberships from every user
// holding one. Calling it for a project without memberships is a no-op.
func (r *UsersRepository) RemoveProjectMemberships(ctx context.Context, projectID string) error {
	members, err := r.ListByProject(projectID).All(ctx)
	if err != nil {
		return fmt.Errorf("list members of project %s: %w", projectID, err)
	}
	for _, user := range members {
		if !user.RemoveMembership(projectID) {
			continue
		}
		if _, err := r.Set(ctx, user); err != nil {
			return fmt.Errorf("remove membership of user %s: %w", user.ID, err)
		}
	}
	if len(members) > 0 {
		r.logger.Info("project memberships removed",
			"project", projectID,
			"users", len(members),
		)
	}
	return nil
}

// prepare stamps the document fields the caller does not control: id,
// tenant and timestamps.
func (r *UsersRepository) prepare(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Tenant = r.tenant
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}

func decodeUser(doc []byte) (*models.User, error) {
	user := &models.User{}
	if err := json.Unmarshal(doc, user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}
