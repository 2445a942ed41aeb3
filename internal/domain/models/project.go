package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/TaffyWrinkle/TeamCloud/internal/config"
)

// Project is a project document. The Users field is a derived view: it is
// recomputed from the users container on every read and never persisted with
// the project document.
type Project struct {
	ID         string            `json:"id"`
	Tenant     string            `json:"tenant"`
	Name       string            `json:"name"`
	Type       ProjectType       `json:"type"`
	Tags       map[string]string `json:"tags,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Users      []User            `json:"-"`
}

// ProjectType describes how a project is provisioned: the providers that
// participate in it and where its resources live.
type ProjectType struct {
	ID         string              `json:"id,omitempty"`
	IsDefault  bool                `json:"isDefault,omitempty"`
	Region     string              `json:"region,omitempty"`
	Providers  []ProviderReference `json:"providers,omitempty"`
	Properties map[string]string   `json:"properties,omitempty"`
}

// ProviderReference associates a provider with a project type.
type ProviderReference struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Validate checks the project against its business rules.
func (p *Project) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name,
			validation.Required,
			validation.Length(1, config.MaxNameLength),
		),
		validation.Field(&p.Tags, validation.Length(0, config.MaxTagsPerResource)),
		validation.Field(&p.Properties, validation.By(validProperties)),
		validation.Field(&p.Type),
	)
}

// Validate checks the project type against its business rules.
func (t ProjectType) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Providers, validation.Length(0, config.MaxProvidersPerType)),
		validation.Field(&t.Properties, validation.By(validProperties)),
	)
}

// Validate checks the provider reference against its business rules.
func (r ProviderReference) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Properties, validation.By(validProperties)),
	)
}
