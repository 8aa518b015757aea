// Package snapshot persists the whole project catalog as a single JSON
// document, matching the original flat-file layout. Every mutation runs a
// full read-modify-write cycle under one mutex, and the write replaces the
// file atomically, so readers never observe a torn snapshot and concurrent
// writers cannot lose each other's updates.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"portfolio-complete/core"
)

const snapshotFile = "projects.json"

type fileStore struct {
	mu       sync.Mutex // serializes every read-modify-write cycle
	filePath string
	assets   core.AssetStore
}

type document struct {
	Projects []*core.Project `json:"projects"`
}

// NewStore creates a snapshot store writing to basePath/projects.json.
func NewStore(basePath string, assets core.AssetStore) (*fileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &fileStore{
		filePath: filepath.Join(basePath, snapshotFile),
		assets:   assets,
	}, nil
}

func (s *fileStore) load() (*document, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Projects: []*core.Project{}}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if doc.Projects == nil {
		doc.Projects = []*core.Project{}
	}
	return &doc, nil
}

// persist writes the document to a temporary file and renames it over the
// snapshot. The rename is atomic, so a failed write leaves the previous
// snapshot intact and a concurrent read sees either the old or the new file.
func (s *fileStore) persist(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// allocID derives a fresh ID from the current time, stepping past any ID
// already present. Runs inside the mutation critical section, so two
// concurrent creates can never pick the same value.
func allocID(doc *document) int64 {
	taken := make(map[int64]bool, len(doc.Projects))
	for _, p := range doc.Projects {
		taken[p.ID] = true
	}
	id := time.Now().UnixMilli()
	for taken[id] {
		id++
	}
	return id
}

func (s *fileStore) List(ctx context.Context) ([]*core.Project, error) {
	doc, err := s.load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load snapshot for list")
		return nil, err
	}
	return doc.Projects, nil
}

func (s *fileStore) Get(ctx context.Context, id int64) (*core.Project, error) {
	doc, err := s.load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load snapshot for get")
		return nil, err
	}
	for _, p := range doc.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *fileStore) Create(ctx context.Context, fields core.ProjectFields, upload *core.AssetUpload) (*core.Project, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

	// Store the asset before entering the critical section; the catalog does
	// not reference it yet, so a later failure only needs a release.
	var imageRef *string
	if upload != nil {
		ref, err := s.assets.Store(upload.Name, upload.Data)
		if err != nil {
			return nil, err
		}
		imageRef = &ref
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		s.releaseRef(imageRef)
		return nil, err
	}

	project := &core.Project{
		ID:          allocID(doc),
		Title:       fields.Title,
		Category:    fields.Category,
		Description: fields.Description,
		Tech:        fields.Tech,
		URL:         fields.URL,
		Image:       imageRef,
		CreatedAt:   time.Now(),
	}
	doc.Projects = append(doc.Projects, project)

	if err := s.persist(doc); err != nil {
		logrus.WithError(err).WithField("project_id", project.ID).Error("Failed to persist created project")
		s.releaseRef(imageRef)
		return nil, err
	}

	logrus.WithField("project_id", project.ID).Info("Project created")
	return project, nil
}

func (s *fileStore) Update(ctx context.Context, id int64, patch core.ProjectPatch, upload *core.AssetUpload) (*core.Project, error) {
	var newRef *string
	if upload != nil {
		ref, err := s.assets.Store(upload.Name, upload.Data)
		if err != nil {
			return nil, err
		}
		newRef = &ref
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		s.releaseRef(newRef)
		return nil, err
	}

	var project *core.Project
	for _, p := range doc.Projects {
		if p.ID == id {
			project = p
			break
		}
	}
	if project == nil {
		s.releaseRef(newRef)
		return nil, core.ErrNotFound
	}

	oldRef := project.Image
	project.Apply(patch)
	if newRef != nil {
		project.Image = newRef
	}

	if err := s.persist(doc); err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to persist updated project")
		// The on-disk snapshot still holds the prior record, which still
		// references the old asset; only the unreferenced new one goes.
		s.releaseRef(newRef)
		return nil, err
	}

	if newRef != nil && oldRef != nil {
		s.releaseRef(oldRef)
	}
	logrus.WithField("project_id", id).Info("Project updated")
	return project, nil
}

func (s *fileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, p := range doc.Projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.ErrNotFound
	}

	removed := doc.Projects[idx]
	doc.Projects = append(doc.Projects[:idx], doc.Projects[idx+1:]...)

	if err := s.persist(doc); err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to persist project deletion")
		return err
	}

	s.releaseRef(removed.Image)
	logrus.WithField("project_id", id).Info("Project deleted")
	return nil
}

// releaseRef schedules a best-effort asset release. Cleanup never blocks or
// fails the mutation that triggered it.
func (s *fileStore) releaseRef(ref *string) {
	if ref == nil {
		return
	}
	go s.assets.Release(*ref)
}
