// Package aws keeps the catalog snapshot in a single S3 object. S3 PutObject
// replaces the object atomically, so the snapshot discipline is the same as
// the local file backend: read the document, mutate, write it back, all under
// one mutex.
package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"portfolio-complete/core"
)

const snapshotKey = "projects.json"

type s3Store struct {
	mu       sync.Mutex
	s3Client *s3.Client
	bucket   string
	assets   core.AssetStore
}

type document struct {
	Projects []*core.Project `json:"projects"`
}

// NewStore creates an S3-backed store using the default SDK credential chain.
func NewStore(bucketName string, assets core.AssetStore) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
		assets:   assets,
	}, nil
}

func (s *s3Store) load(ctx context.Context) (*document, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(snapshotKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return &document{Projects: []*core.Project{}}, nil
		}
		return nil, fmt.Errorf("failed to get snapshot object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot object: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot object: %w", err)
	}
	if doc.Projects == nil {
		doc.Projects = []*core.Project{}
	}
	return &doc, nil
}

func (s *s3Store) persist(ctx context.Context, doc *document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(snapshotKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}

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

func (s *s3Store) List(ctx context.Context) ([]*core.Project, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Projects, nil
}

func (s *s3Store) Get(ctx context.Context, id int64) (*core.Project, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range doc.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *s3Store) Create(ctx context.Context, fields core.ProjectFields, upload *core.AssetUpload) (*core.Project, error) {
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

	doc, err := s.load(ctx)
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

	if err := s.persist(ctx, doc); err != nil {
		logrus.WithError(err).WithField("project_id", project.ID).Error("Failed to persist created project to S3")
		s.releaseRef(imageRef)
		return nil, err
	}
	return project, nil
}

func (s *s3Store) Update(ctx context.Context, id int64, patch core.ProjectPatch, upload *core.AssetUpload) (*core.Project, error) {
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

	doc, err := s.load(ctx)
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

	if err := s.persist(ctx, doc); err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to persist updated project to S3")
		s.releaseRef(newRef)
		return nil, err
	}

	if newRef != nil && oldRef != nil {
		s.releaseRef(oldRef)
	}
	return project, nil
}

func (s *s3Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
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

	if err := s.persist(ctx, doc); err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to persist project deletion to S3")
		return err
	}

	s.releaseRef(removed.Image)
	return nil
}

func (s *s3Store) releaseRef(ref *string) {
	if ref == nil {
		return
	}
	go s.assets.Release(*ref)
}
