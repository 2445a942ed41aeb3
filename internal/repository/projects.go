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

// ProjectsRepository implements the ProjectRepository interface on the
// document store. Every returned project passes through populate, so the
// transient Users field always reflects the users container at call time.
type ProjectsRepository struct {
	store  docstore.Store
	tenant string
	logger *slog.Logger
	users  repositories.UserRepository
}

// NewProjectsRepository creates a new projects repository. The users
// repository populates the transient Users field and removes project
// memberships after deletes.
func NewProjectsRepository(config *Config, users repositories.UserRepository) repositories.ProjectRepository {
	return &ProjectsRepository{
		store:  config.Store,
		tenant: config.Tenant,
		logger: config.logger(),
		users:  users,
	}
}

// Add creates a new project. Users is freshly populated on the result:
// always computed, even though a just-created project has no members yet.
func (r *ProjectsRepository) Add(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project == nil {
		return nil, domain.NewValidationError("project", errors.New("project is required"))
	}
	r.prepare(project)
	if err := project.Validate(); err != nil {
		return nil, domain.NewValidationError("project", err)
	}

	doc, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	stored, err := r.store.Create(ctx, docstore.ContainerProjects, r.tenant, project.ID, doc)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, r.conflict(ctx, project)
		}
		return nil, fmt.Errorf("add project: %w", err)
	}

	created, err := decodeProject(stored)
	if err != nil {
		return nil, err
	}
	r.logger.Info("project created",
		"id", created.ID,
		"name", created.Name,
	)
	return r.populate(ctx, created)
}

// Get resolves nameOrID as a document id first; only on a miss does it fall
// back to a name query, so an id match always wins over a name match.
// Returns nil when neither stage finds a project.
func (r *ProjectsRepository) Get(ctx context.Context, nameOrID string) (*models.Project, error) {
	doc, err := r.store.Read(ctx, docstore.ContainerProjects, r.tenant, nameOrID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get project: %w", err)
		}
		project, err := r.getByName(ctx, nameOrID)
		if err != nil || project == nil {
			return nil, err
		}
		return r.populate(ctx, project)
	}

	project, err := decodeProject(doc)
	if err != nil {
		return nil, err
	}
	return r.populate(ctx, project)
}

// NameExists reports whether Get resolves the name. It reuses the full
// lookup, population included.
func (r *ProjectsRepository) NameExists(ctx context.Context, name string) (bool, error) {
	project, err := r.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return project != nil, nil
}

// Set upserts the full project document keyed by its id. No concurrency
// check is made: concurrent upserts of the same id are last-writer-wins.
func (r *ProjectsRepository) Set(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project == nil {
		return nil, domain.NewValidationError("project", errors.New("project is required"))
	}
	r.prepare(project)
	if err := project.Validate(); err != nil {
		return nil, domain.NewValidationError("project", err)
	}

	doc, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	stored, err := r.store.Upsert(ctx, docstore.ContainerProjects, r.tenant, project.ID, doc)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, r.conflict(ctx, project)
		}
		return nil, fmt.Errorf("set project: %w", err)
	}

	updated, err := decodeProject(stored)
	if err != nil {
		return nil, err
	}
	r.logger.Info("project updated",
		"id", updated.ID,
		"name", updated.Name,
	)
	return r.populate(ctx, updated)
}

// List lazily yields every project in the tenant, each populated before it
// is handed to the consumer.
func (r *ProjectsRepository) List() *repositories.Iterator[models.Project] {
	pager := r.store.Query(docstore.ContainerProjects, r.tenant, docstore.Query{})
	return repositories.NewIterator(pager, r.visit)
}

// ListByNameOrID lazily yields projects whose id or name matches any entry
// of the set. An empty set matches nothing.
func (r *ProjectsRepository) ListByNameOrID(nameOrIDs []string) *repositories.Iterator[models.Project] {
	query := docstore.WhereAny(
		docstore.In("id", nameOrIDs...),
		docstore.In("name", nameOrIDs...),
	)
	pager := r.store.Query(docstore.ContainerProjects, r.tenant, query)
	return repositories.NewIterator(pager, r.visit)
}

// ListByProvider lazily yields projects whose type references the given
// provider.
func (r *ProjectsRepository) ListByProvider(providerID string) *repositories.Iterator[models.Project] {
	query := docstore.Where(docstore.Contains("type.providers", map[string]any{"id": providerID}))
	pager := r.store.Query(docstore.ContainerProjects, r.tenant, query)
	return repositories.NewIterator(pager, r.visit)
}

// Remove deletes the project document, then removes the project memberships
// referencing it. Deleting an already-deleted project returns nil. The
// returned snapshot carries the membership state at deletion time.
//
// The two steps are not transactional: when the membership cleanup fails,
// its error propagates even though the project document is already gone,
// and the orphaned memberships remain until a cleanup retry.
func (r *ProjectsRepository) Remove(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project == nil {
		return nil, domain.NewValidationError("project", errors.New("project is required"))
	}

	if err := r.store.Delete(ctx, docstore.ContainerProjects, r.tenant, project.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("remove project: %w", err)
	}

	removed, err := r.populate(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := r.users.RemoveProjectMemberships(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("remove memberships of project %s: %w", project.ID, err)
	}

	r.logger.Info("project deleted",
		"id", removed.ID,
		"name", removed.Name,
	)
	return removed, nil
}

// populate fills the transient Users field from the users repository. A nil
// project passes through untouched, so not-found results stay clean.
func (r *ProjectsRepository) populate(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project == nil {
		return nil, nil
	}
	users, err := r.users.ListByProject(project.ID).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("populate project %s: %w", project.ID, err)
	}
	project.Users = make([]models.User, 0, len(users))
	for _, user := range users {
		project.Users = append(project.Users, *user)
	}
	return project, nil
}

// visit adapts populate for list iteration: an item is populated before the
// iterator yields it.
func (r *ProjectsRepository) visit(ctx context.Context, project *models.Project) error {
	_, err := r.populate(ctx, project)
	return err
}

// prepare stamps the document fields the caller does not control: id,
// tenant and timestamps.
func (r *ProjectsRepository) prepare(project *models.Project) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.Tenant = r.tenant
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
}

// conflict resolves the id of the project the write collided with, so
// callers see which resource took the name. A wrapped sentinel is the
// fallback when the name lookup resolves nothing.
func (r *ProjectsRepository) conflict(ctx context.Context, project *models.Project) error {
	existing, err := r.getByName(ctx, project.Name)
	if err != nil || existing == nil {
		return fmt.Errorf("project %q already exists: %w", project.Name, domain.ErrConflict)
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("project %q already exists", project.Name),
		ResourceType: "project",
		ResourceID:   existing.ID,
	}
}

// getByName returns the first project whose name matches, unpopulated, or
// nil. Kept separate from Get so both lookup stages stay testable on their
// own.
func (r *ProjectsRepository) getByName(ctx context.Context, name string) (*models.Project, error) {
	pager := r.store.Query(docstore.ContainerProjects, r.tenant, docstore.Where(docstore.Eq("name", name)))
	defer pager.Close()

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query project by name: %w", err)
		}
		for _, doc := range page {
			return decodeProject(doc)
		}
	}
	return nil, nil
}

func decodeProject(doc []byte) (*models.Project, error) {
	project := &models.Project{}
	if err := json.Unmarshal(doc, project); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return project, nil
}
