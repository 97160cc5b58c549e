package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Task is one row of the usertaskinfo table.
type Task struct {
	ID          int64      `json:"id"`
	Agent       string     `json:"agent,omitempty"`
	TaskID      int64      `json:"task_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	WorkbenchID int64      `json:"workbench_id,omitempty"`
}

// CreateTask records a task, optionally assigned to an agent and a
// workbench. Pass agent "" or workbenchID -1 to leave them unset. New tasks
// start in status "assigned".
func (s *Store) CreateTask(ctx context.Context, taskID int64, agent string, workbenchID int64) (*Task, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO usertaskinfo (agent, task_id, status, created_at, workbench_id)
		VALUES (?, ?, 'assigned', ?, ?)
	`, nullString(agent), taskID, now, nullInt64(workbenchID))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read task row id: %w", err)
	}

	task := &Task{ID: id, Agent: agent, TaskID: taskID, Status: "assigned", CreatedAt: now}
	if workbenchID >= 0 {
		task.WorkbenchID = workbenchID
	}
	return task, nil
}

// UpdateTaskStatus sets the status of a task, optionally reassigning its
// agent. Moving to "completed" stamps the completion time.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID int64, agent, status string) (*Task, error) {
	var rowID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM usertaskinfo WHERE task_id = ? ORDER BY id LIMIT 1", taskID,
	).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	var completedAt any
	if status == "completed" {
		completedAt = time.Now()
	}
	if agent != "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE usertaskinfo SET agent = ?, status = ?, completed_at = ? WHERE id = ?
		`, agent, status, completedAt, rowID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE usertaskinfo SET status = ?, completed_at = ? WHERE id = ?
		`, status, completedAt, rowID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return s.getTaskRow(ctx, rowID)
}

// ListRecentTasks returns an agent's most recently completed tasks.
func (s *Store) ListRecentTasks(ctx context.Context, agent string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent, task_id, status, created_at, completed_at, workbench_id
		FROM usertaskinfo
		WHERE agent = ? AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT ?
	`, agent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) getTaskRow(ctx context.Context, rowID int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent, task_id, status, created_at, completed_at, workbench_id
		FROM usertaskinfo
		WHERE id = ?
	`, rowID)
	return scanTask(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	task := &Task{}
	var agent sql.NullString
	var completedAt sql.NullTime
	var workbenchID sql.NullInt64
	err := row.Scan(&task.ID, &agent, &task.TaskID, &task.Status, &task.CreatedAt, &completedAt, &workbenchID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	task.Agent = agent.String
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	task.WorkbenchID = workbenchID.Int64
	return task, nil
}
