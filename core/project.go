package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a project with the requested ID does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrValidation is returned when required project fields are missing or empty.
	ErrValidation = errors.New("invalid project fields")
)

type (
	// Project represents a single portfolio entry, optionally carrying one
	// uploaded image asset.
	Project struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Tech        []string  `json:"tech"`
		URL         string    `json:"url"`
		Image       *string   `json:"image"` // logical asset ref, null when no image is attached
		CreatedAt   time.Time `json:"createdAt"`
	}

	// ProjectFields holds the normalized field values for a new project.
	// Title, Category and Description must be non-empty; validate.Project
	// enforces that before these reach a store, and stores re-check it.
	ProjectFields struct {
		Title       string
		Category    string
		Description string
		Tech        []string
		URL         string
	}

	// ProjectPatch is a partial update. A nil field means "leave unchanged".
	ProjectPatch struct {
		Title       *string
		Category    *string
		Description *string
		Tech        []string
		URL         *string
	}

	// AssetUpload carries the raw bytes of an uploaded image together with
	// the client-supplied filename (used only for its extension).
	AssetUpload struct {
		Name string
		Data []byte
	}

	// CatalogStore defines the persistence layer for the project catalog.
	// Implementations must apply mutations one at a time: concurrent Create,
	// Update and Delete calls behave as if executed in some total order, and
	// List/Get never observe a partially written snapshot.
	CatalogStore interface {
		// List returns every project in insertion order.
		List(ctx context.Context) ([]*Project, error)

		// Get returns a single project by ID, or ErrNotFound.
		Get(ctx context.Context, id int64) (*Project, error)

		// Create allocates a fresh unique ID, stores the upload (if any) and
		// appends the new project. The asset is never referenced by a
		// persisted record unless the persist succeeded.
		Create(ctx context.Context, fields ProjectFields, upload *AssetUpload) (*Project, error)

		// Update applies only the supplied patch fields. A non-nil upload
		// replaces the project's image; the previous asset is released only
		// after the new state is durably persisted.
		Update(ctx context.Context, id int64, patch ProjectPatch, upload *AssetUpload) (*Project, error)

		// Delete removes the project and releases its asset, if any.
		Delete(ctx context.Context, id int64) error
	}

	// AssetStore owns the lifecycle of binary image files in the asset area.
	AssetStore interface {
		// Store writes the bytes under a collision-free name and returns the
		// logical ref to record in a project's Image field.
		Store(name string, data []byte) (string, error)

		// Release deletes the file behind ref, best effort. Failures are
		// logged and never propagated.
		Release(ref string)

		// Resolve maps a logical ref to an absolute path inside the asset
		// area. The second return is false for refs that do not belong to it.
		Resolve(ref string) (string, bool)
	}
)

// Apply copies the supplied patch fields onto p.
func (p *Project) Apply(patch ProjectPatch) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Tech != nil {
		p.Tech = patch.Tech
	}
	if patch.URL != nil {
		p.URL = *patch.URL
	}
}

// Check re-checks the non-empty invariants on required fields. Stores
// call this defensively before persisting a new project.
func (f ProjectFields) Check() error {
	if f.Title == "" || f.Category == "" || f.Description == "" {
		return ErrValidation
	}
	return nil
}
