// Package seed applies the embedded demo dataset through the repositories,
// so seeded data passes validation, uniqueness checks and population exactly
// like regular writes.
package seed

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain/models"
	"github.com/TaffyWrinkle/TeamCloud/internal/domain/repositories"
)

//go:embed dataset.yaml
var datasetFiles embed.FS

// Dataset is the demo data shipped with the seed tool.
type Dataset struct {
	Projects []ProjectSeed `yaml:"projects"`
	Users    []UserSeed    `yaml:"users"`
}

// ProjectSeed describes one project to create.
type ProjectSeed struct {
	Name       string            `yaml:"name"`
	Type       ProjectTypeSeed   `yaml:"type"`
	Tags       map[string]string `yaml:"tags"`
	Properties map[string]string `yaml:"properties"`
}

// ProjectTypeSeed describes a project's type.
type ProjectTypeSeed struct {
	ID        string         `yaml:"id"`
	IsDefault bool           `yaml:"isDefault"`
	Region    string         `yaml:"region"`
	Providers []ProviderSeed `yaml:"providers"`
}

// ProviderSeed references a provider by id.
type ProviderSeed struct {
	ID         string            `yaml:"id"`
	Properties map[string]string `yaml:"properties"`
}

// UserSeed describes one user to create. Memberships reference projects by
// their dataset name and are resolved to ids while seeding.
type UserSeed struct {
	ID          string            `yaml:"id"`
	Role        string            `yaml:"role"`
	Properties  map[string]string `yaml:"properties"`
	Memberships []MembershipSeed  `yaml:"memberships"`
}

// MembershipSeed associates a user with a dataset project.
type MembershipSeed struct {
	Project string `yaml:"project"`
	Role    string `yaml:"role"`
}

// Load parses the embedded dataset.
func Load() (*Dataset, error) {
	data, err := datasetFiles.ReadFile("dataset.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	dataset := &Dataset{}
	if err := yaml.Unmarshal(data, dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return dataset, nil
}

// Apply writes the dataset through the repositories: projects first, then
// users with their memberships resolved against the projects just created.
func Apply(ctx context.Context, dataset *Dataset, projects repositories.ProjectRepository, users repositories.UserRepository, logger *slog.Logger) error {
	projectIDs := make(map[string]string, len(dataset.Projects))
	for _, entry := range dataset.Projects {
		project, err := projects.Add(ctx, entry.project())
		if err != nil {
			return fmt.Errorf("seed project %q: %w", entry.Name, err)
		}
		projectIDs[project.Name] = project.ID
	}

	for _, entry := range dataset.Users {
		user, err := entry.user(projectIDs)
		if err != nil {
			return err
		}
		if _, err := users.Add(ctx, user); err != nil {
			return fmt.Errorf("seed user %q: %w", entry.ID, err)
		}
	}

	logger.Info("dataset applied",
		"projects", len(dataset.Projects),
		"users", len(dataset.Users),
	)
	return nil
}

// Clear removes every project and user in the tenant. Removing the projects
// first exercises the same membership cleanup as regular deletes.
func Clear(ctx context.Context, projects repositories.ProjectRepository, users repositories.UserRepository, logger *slog.Logger) error {
	allProjects, err := projects.List().All(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	for _, project := range allProjects {
		if _, err := projects.Remove(ctx, project); err != nil {
			return fmt.Errorf("remove project %q: %w", project.Name, err)
		}
	}

	allUsers, err := users.List().All(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, user := range allUsers {
		if _, err := users.Remove(ctx, user); err != nil {
			return fmt.Errorf("remove user %q: %w", user.ID, err)
		}
	}

	logger.Info("tenant cleared",
		"projects", len(allProjects),
		"users", len(allUsers),
	)
	return nil
}

func (p ProjectSeed) project() *models.Project {
	providers := make([]models.ProviderReference, 0, len(p.Type.Providers))
	for _, provider := range p.Type.Providers {
		providers = append(providers, models.ProviderReference{
			ID:         provider.ID,
			Properties: provider.Properties,
		})
	}
	return &models.Project{
		Name: p.Name,
		Type: models.ProjectType{
			ID:        p.Type.ID,
			IsDefault: p.Type.IsDefault,
			Region:    p.Type.Region,
			Providers: providers,
		},
		Tags:       p.Tags,
		Properties: p.Properties,
	}
}

func (u UserSeed) user(projectIDs map[string]string) (*models.User, error) {
	user := &models.User{
		ID:         u.ID,
		Role:       models.UserRole(u.Role),
		Properties: u.Properties,
	}
	for _, membership := range u.Memberships {
		projectID, ok := projectIDs[membership.Project]
		if !ok {
			return nil, fmt.Errorf("user %q references unknown project %q", u.ID, membership.Project)
		}
		user.EnsureMembership(models.ProjectMembership{
			ProjectID: projectID,
			Role:      models.ProjectRole(membership.Role),
		})
	}
	return user, nil
}
