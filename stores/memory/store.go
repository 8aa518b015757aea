// Package memory keeps the catalog in process memory. Used as the default
// fallback backend and throughout the tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"portfolio-complete/core"
)

type memStore struct {
	mu       sync.Mutex
	projects []*core.Project
	assets   core.AssetStore
}

// NewStore creates an empty in-memory store.
func NewStore(assets core.AssetStore) *memStore {
	return &memStore{
		projects: []*core.Project{},
		assets:   assets,
	}
}

func (s *memStore) allocID() int64 {
	taken := make(map[int64]bool, len(s.projects))
	for _, p := range s.projects {
		taken[p.ID] = true
	}
	id := time.Now().UnixMilli()
	for taken[id] {
		id++
	}
	return id
}

// clone keeps callers from mutating the store's records through returned
// pointers.
func clone(p *core.Project) *core.Project {
	c := *p
	if p.Tech != nil {
		c.Tech = append([]string{}, p.Tech...)
	}
	if p.Image != nil {
		ref := *p.Image
		c.Image = &ref
	}
	return &c
}

func (s *memStore) List(ctx context.Context) ([]*core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (*core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) Create(ctx context.Context, fields core.ProjectFields, upload *core.AssetUpload) (*core.Project, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

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

	project := &core.Project{
		ID:          s.allocID(),
		Title:       fields.Title,
		Category:    fields.Category,
		Description: fields.Description,
		Tech:        fields.Tech,
		URL:         fields.URL,
		Image:       imageRef,
		CreatedAt:   time.Now(),
	}
	s.projects = append(s.projects, project)

	logrus.WithField("project_id", project.ID).Debug("Project created in memory")
	return clone(project), nil
}

func (s *memStore) Update(ctx context.Context, id int64, patch core.ProjectPatch, upload *core.AssetUpload) (*core.Project, error) {
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

	var project *core.Project
	for _, p := range s.projects {
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
		s.releaseRef(oldRef)
	}
	return clone(project), nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.projects {
		if p.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			s.releaseRef(p.Image)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) releaseRef(ref *string) {
	if ref == nil {
		return
	}
	go s.assets.Release(*ref)
}
