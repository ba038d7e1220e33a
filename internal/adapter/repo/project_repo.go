package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// ProjectRepositoryPG stores each VideoProject as one JSONB document.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewProjectRepository creates a project repository backed by PostgreSQL.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql, now: time.Now}
}

// Create inserts a new project document.
func (r *ProjectRepositoryPG) Create(ctx context.Context, p *domain.VideoProject) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = r.now().UTC()
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertProject, p.ID, p.Title, string(p.Status), doc, created)
	if infra.IsUniqueViolation(err) {
		return fmt.Errorf("project %s: %w", p.ID, domain.ErrDuplicateOperation)
	}
	return err
}

// Get loads a project document.
func (r *ProjectRepositoryPG) Get(ctx context.Context, id string) (*domain.VideoProject, error) {
	var doc []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectProject, id).Scan(&doc); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	var p domain.VideoProject
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	return &p, nil
}

// Save replaces the stored document with p.
func (r *ProjectRepositoryPG) Save(ctx context.Context, p *domain.VideoProject) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = r.now().UTC()
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateProject, p.ID, p.Title, string(p.Status), doc, updated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
