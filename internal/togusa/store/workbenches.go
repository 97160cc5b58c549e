package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Workbench is one row of the workbench table.
type Workbench struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateWorkbench inserts a workbench and returns it with its assigned id.
// The description may be empty. Names are unique.
func (s *Store) CreateWorkbench(ctx context.Context, name, description string) (*Workbench, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workbench WHERE name = ?", name,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check workbench name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %s", ErrWorkbenchExists, name)
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workbench (name, description, created_at)
		VALUES (?, ?, ?)
	`, name, nullString(description), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbench: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read workbench id: %w", err)
	}

	return &Workbench{ID: id, Name: name, Description: description, CreatedAt: now}, nil
}

// GetWorkbench retrieves a workbench by id.
func (s *Store) GetWorkbench(ctx context.Context, id int64) (*Workbench, error) {
	wb := &Workbench{}
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM workbench
		WHERE id = ?
	`, id).Scan(&wb.ID, &wb.Name, &description, &wb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: workbench %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workbench: %w", err)
	}
	wb.Description = description.String
	return wb, nil
}

// ListWorkbenches returns all workbenches ordered by id.
func (s *Store) ListWorkbenches(ctx context.Context) ([]Workbench, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM workbench
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workbenches: %w", err)
	}
	defer rows.Close()

	var workbenches []Workbench
	for rows.Next() {
		var wb Workbench
		var description sql.NullString
		if err := rows.Scan(&wb.ID, &wb.Name, &description, &wb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workbench: %w", err)
		}
		wb.Description = description.String
		workbenches = append(workbenches, wb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workbenches: %w", err)
	}
	return workbenches, nil
}
