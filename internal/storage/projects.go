package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reimburse/internal/core"
)

const projectColumns = `id, name, note, status, created_by, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (core.Project, error) {
	var (
		p                    core.Project
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Note, &status, &p.CreatedBy, &createdAt, &updatedAt); err != nil {
		return core.Project{}, err
	}
	p.Status = core.ProjectStatus(status)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func (q *Queries) CreateProject(ctx context.Context, p core.Project) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO projects (name, note, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Note, string(p.Status), int64(p.CreatedBy), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrDuplicateProject
		}
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetProject(ctx context.Context, id int64) (core.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.ErrProjectNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func (q *Queries) GetProjectByName(ctx context.Context, name string) (core.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.ErrProjectNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %q: %w", name, err)
	}
	return p, nil
}

func (q *Queries) UpdateProject(ctx context.Context, p core.Project) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, note = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Note, string(p.Status), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateProject
		}
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	} else if n == 0 {
		return core.ErrProjectNotFound
	}
	return nil
}

// ListProjects returns projects ordered by name; an empty status lists all.
func (q *Queries) ListProjects(ctx context.Context, status core.ProjectStatus) ([]core.Project, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE (? = '' OR status = ?) ORDER BY name`,
		string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
