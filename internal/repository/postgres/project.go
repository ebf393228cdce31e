package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/models"
)

type ProjectRepo struct {
	DB DBTX
}

const createProject = `-- name: CreateProject
INSERT INTO projects (id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
`

func (r *ProjectRepo) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.ModifiedAt = now
	if p.Tags == nil {
		p.Tags = []string{}
	}

	rows, _ := r.DB.Query(ctx, createProject,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.Priority, p.Progress,
		p.StartDate, p.EndDate, p.Tags, p.CreatedAt, p.ModifiedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToProject)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getProject = `-- name: GetProject
SELECT id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
FROM projects
WHERE id = $1 AND user_id = $2
`

func (r *ProjectRepo) GetProject(ctx context.Context, id uuid.UUID, userID string) (models.Project, error) {
	rows, _ := r.DB.Query(ctx, getProject, id, userID)
	p, err := pgx.CollectOneRow(rows, rowToProject)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrProjectNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

const updateProject = `-- name: UpdateProject
UPDATE projects
SET title = $3, description = $4, status = $5, priority = $6, progress = $7,
    start_date = $8, end_date = $9, tags = $10, modified_at = $11
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
`

func (r *ProjectRepo) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	rows, _ := r.DB.Query(ctx, updateProject,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.Priority, p.Progress,
		p.StartDate, p.EndDate, p.Tags, time.Now(),
	)
	updated, err := pgx.CollectOneRow(rows, rowToProject)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		return updated, apperrors.ErrProjectNotFound
	default:
		return updated, fmt.Errorf("db error: %w", err)
	}
}

const deleteProject = `-- name: DeleteProject
DELETE FROM projects
WHERE id = $1 AND user_id = $2
`

func (r *ProjectRepo) DeleteProject(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.DB.Exec(ctx, deleteProject, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProjectNotFound
	}

	return nil
}

const listProjects = `-- name: ListProjects
SELECT id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
FROM projects
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *ProjectRepo) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	rows, _ := r.DB.Query(ctx, listProjects, userID)
	projects, err := pgx.CollectRows(rows, rowToProject)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return projects, nil
}

const listProjectsByStatus = `-- name: ListProjectsByStatus
SELECT id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
FROM projects
WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC
`

func (r *ProjectRepo) ListProjectsByStatus(ctx context.Context, userID string, status string) ([]models.Project, error) {
	rows, _ := r.DB.Query(ctx, listProjectsByStatus, userID, status)
	projects, err := pgx.CollectRows(rows, rowToProject)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return projects, nil
}

// Substring match on title, description or any tag, case insensitive
const searchProjects = `-- name: SearchProjects
SELECT id, user_id, title, description, status, priority, progress, start_date, end_date, tags, created_at, modified_at
FROM projects
WHERE user_id = $1 AND (
	title ILIKE '%' || $2 || '%'
	OR description ILIKE '%' || $2 || '%'
	OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE '%' || $2 || '%')
)
ORDER BY created_at DESC
`

func (r *ProjectRepo) SearchProjects(ctx context.Context, userID string, query string) ([]models.Project, error) {
	rows, _ := r.DB.Query(ctx, searchProjects, userID, query)
	projects, err := pgx.CollectRows(rows, rowToProject)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return projects, nil
}

const countByStatus = `-- name: CountByStatus
SELECT status, count(*) FROM projects
WHERE user_id = $1
GROUP BY status
`

func (r *ProjectRepo) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	rows, _ := r.DB.Query(ctx, countByStatus, userID)

	counts := make(map[string]int)
	var status string
	var count int
	_, err := pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		counts[status] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return counts, nil
}

func rowToProject(row pgx.CollectableRow) (models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.Status, &p.Priority,
		&p.Progress, &p.StartDate, &p.EndDate, &p.Tags, &p.CreatedAt, &p.ModifiedAt,
	)
	return p, err
}
