package store

import (
	"context"
	"fmt"
	"time"
)

// AgentStats summarises one agent's task history.
type AgentStats struct {
	Agent          string  `json:"agent"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// CreateAgent registers an agent by name. Names are unique; registering an
// existing name returns ErrAgentExists.
func (s *Store) CreateAgent(ctx context.Context, name string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM agents WHERE name = ?", name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check agent name: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO agents (name, created_at) VALUES (?, ?)", name, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// ListAgents returns every agent name known to the system: explicitly
// registered agents plus any agent referenced by a task, deduplicated and
// sorted.
func (s *Store) ListAgents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM agents
		UNION
		SELECT DISTINCT agent FROM usertaskinfo WHERE agent IS NOT NULL AND agent != ''
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan agent name: %w", err)
		}
		agents = append(agents, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}
	return agents, nil
}

// CountAgents returns the number of distinct agent names.
func (s *Store) CountAgents(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT name FROM agents
			UNION
			SELECT DISTINCT agent FROM usertaskinfo WHERE agent IS NOT NULL AND agent != ''
		)
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return count, nil
}

// GetAgentStats returns task totals and the completion rate for one agent.
func (s *Store) GetAgentStats(ctx context.Context, agent string) (*AgentStats, error) {
	stats := &AgentStats{Agent: agent}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN status = 'completed' THEN 1 END)
		FROM usertaskinfo
		WHERE agent = ?
	`, agent).Scan(&stats.TotalTasks, &stats.CompletedTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent stats: %w", err)
	}
	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	return stats, nil
}
