// Package sqlite backs the catalog with an embedded transactional database.
// It honors the same contract as the snapshot backend: mutations are applied
// one at a time and readers never see a half-applied change.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"portfolio-complete/core"
)

type sqliteStore struct {
	mu     sync.Mutex // serializes mutations, including ID allocation
	db     *sql.DB
	assets core.AssetStore
}

// NewStore opens (creating if needed) a SQLite-backed store.
func NewStore(dataSourceName string, assets core.AssetStore) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	tableStmt := `
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		tech TEXT NOT NULL,
		url TEXT NOT NULL,
		image TEXT,
		created_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(tableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create projects table: %w", err)
	}

	return &sqliteStore{db: db, assets: assets}, nil
}

func scanProject(scan func(dest ...any) error) (*core.Project, error) {
	var (
		p        core.Project
		techJSON string
		image    sql.NullString
	)
	if err := scan(&p.ID, &p.Title, &p.Category, &p.Description, &techJSON, &p.URL, &image, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(techJSON), &p.Tech); err != nil {
		return nil, fmt.Errorf("failed to decode tech tags: %w", err)
	}
	if image.Valid {
		p.Image = &image.String
	}
	return &p, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, category, description, tech, url, image, created_at FROM projects ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*core.Project{}
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id int64) (*core.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, title, category, description, tech, url, image, created_at FROM projects WHERE id = ?", id)
	p, err := scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return p, err
}

// allocID mirrors the snapshot backend: time-derived candidate, stepped past
// collisions. Callers hold s.mu.
func (s *sqliteStore) allocID(ctx context.Context, tx *sql.Tx) (int64, error) {
	id := time.Now().UnixMilli()
	for {
		var exists bool
		err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)", id).Scan(&exists)
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
		id++
	}
}

func (s *sqliteStore) Create(ctx context.Context, fields core.ProjectFields, upload *core.AssetUpload) (*core.Project, error) {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.releaseRef(imageRef)
		return nil, err
	}
	defer tx.Rollback()

	id, err := s.allocID(ctx, tx)
	if err != nil {
		s.releaseRef(imageRef)
		return nil, err
	}

	project := &core.Project{
		ID:          id,
		Title:       fields.Title,
		Category:    fields.Category,
		Description: fields.Description,
		Tech:        fields.Tech,
		URL:         fields.URL,
		Image:       imageRef,
		CreatedAt:   time.Now(),
	}

	techJSON, err := json.Marshal(project.Tech)
	if err != nil {
		s.releaseRef(imageRef)
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO projects (id, title, category, description, tech, url, image, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		project.ID, project.Title, project.Category, project.Description, string(techJSON), project.URL, nullable(project.Image), project.CreatedAt)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to insert project")
		s.releaseRef(imageRef)
		return nil, err
	}
	return project, nil
}

func (s *sqliteStore) Update(ctx context.Context, id int64, patch core.ProjectPatch, upload *core.AssetUpload) (*core.Project, error) {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.releaseRef(newRef)
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT id, title, category, description, tech, url, image, created_at FROM projects WHERE id = ?", id)
	project, err := scanProject(row.Scan)
	if err != nil {
		s.releaseRef(newRef)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}

	oldRef := project.Image
	project.Apply(patch)
	if newRef != nil {
		project.Image = newRef
	}

	techJSON, err := json.Marshal(project.Tech)
	if err != nil {
		s.releaseRef(newRef)
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE projects SET title = ?, category = ?, description = ?, tech = ?, url = ?, image = ? WHERE id = ?",
		project.Title, project.Category, project.Description, string(techJSON), project.URL, nullable(project.Image), id)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to update project")
		s.releaseRef(newRef)
		return nil, err
	}

	if newRef != nil {
		s.releaseRef(oldRef)
	}
	return project, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var image sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT image FROM projects WHERE id = ?", id).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if image.Valid {
		s.releaseRef(&image.String)
	}
	return nil
}

func (s *sqliteStore) releaseRef(ref *string) {
	if ref == nil {
		return
	}
	go s.assets.Release(*ref)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
