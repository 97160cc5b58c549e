package store

import (
	"context"
	"fmt"
	"time"
)

// standardRoles is the fixed role vocabulary coverage is measured against.
// Order matters: reports list roles in this order. The interpretation core
// carries the same four names for its own validation.
var standardRoles = []string{"Assessor", "Reviewer", "Team Lead", "Viewer"}

// RoleAssignment is one active role held by an agent in a workbench.
type RoleAssignment struct {
	Agent         string    `json:"agent"`
	Role          string    `json:"role"`
	WorkbenchID   int64     `json:"workbench_id"`
	WorkbenchName string    `json:"workbench_name,omitempty"`
	AssignedBy    string    `json:"assigned_by,omitempty"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// RoleMap describes one workbench's role table: every standard role keyed,
// assigned or not, plus the gaps.
type RoleMap struct {
	WorkbenchID      int64                       `json:"workbench_id"`
	WorkbenchName    string                      `json:"workbench_name"`
	Description      string                      `json:"description,omitempty"`
	Roles            map[string][]RoleAssignment `json:"roles"`
	TotalAssignments int                         `json:"total_assignments"`
	MissingRoles     []string                    `json:"missing_roles"`
}

// WorkbenchCoverage is one row of the coverage report.
type WorkbenchCoverage struct {
	WorkbenchID        int64   `json:"workbench_id"`
	WorkbenchName      string  `json:"workbench_name"`
	Assessors          int     `json:"assessors"`
	Reviewers          int     `json:"reviewers"`
	TeamLeads          int     `json:"team_leads"`
	Viewers            int     `json:"viewers"`
	TotalAssignments   int     `json:"total_assignments"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	Gaps               int     `json:"gaps"`
}

// CoverageReport aggregates role coverage across every workbench.
type CoverageReport struct {
	Workbenches             []WorkbenchCoverage `json:"workbenches"`
	TotalWorkbenches        int                 `json:"total_workbenches"`
	TotalRoleGaps           int                 `json:"total_role_gaps"`
	FullyCoveredWorkbenches int                 `json:"fully_covered_workbenches"`
}

// AssignRole gives an agent a role in a workbench. Re-assigning a role that
// was removed reactivates it; an already active assignment returns
// ErrDuplicateAssignment.
func (s *Store) AssignRole(ctx context.Context, agent string, workbenchID int64, role, assignedBy string) error {
	if !isStandardRole(role) {
		return fmt.Errorf("store: role must be one of %v, got %q", standardRoles, role)
	}
	if _, err := s.GetWorkbench(ctx, workbenchID); err != nil {
		return err
	}

	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM workbench_roles
		WHERE workbench_id = ? AND agent = ? AND role = ? AND is_active = 1
	`, workbenchID, agent, role).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: %s as %s in workbench %d", ErrDuplicateAssignment, agent, role, workbenchID)
	}

	if assignedBy == "" {
		assignedBy = "system"
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workbench_roles (workbench_id, agent, role, assigned_by, assigned_at, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (workbench_id, agent, role)
		DO UPDATE SET is_active = 1, assigned_by = excluded.assigned_by, assigned_at = excluded.assigned_at
	`, workbenchID, agent, role, assignedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RemoveRole deactivates an active role assignment.
func (s *Store) RemoveRole(ctx context.Context, agent string, workbenchID int64, role string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workbench_roles
		SET is_active = 0
		WHERE workbench_id = ? AND agent = ? AND role = ? AND is_active = 1
	`, workbenchID, agent, role)
	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s as %s in workbench %d", ErrNotFound, agent, role, workbenchID)
	}
	return nil
}

// GetWorkbenchRoles returns the full role table of one workbench. Every
// standard role is keyed in the result, with or without assignees.
func (s *Store) GetWorkbenchRoles(ctx context.Context, workbenchID int64) (*RoleMap, error) {
	wb, err := s.GetWorkbench(ctx, workbenchID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent, role, assigned_at, assigned_by
		FROM workbench_roles
		WHERE workbench_id = ? AND is_active = 1
		ORDER BY role, agent
	`, workbenchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workbench roles: %w", err)
	}
	defer rows.Close()

	rm := &RoleMap{
		WorkbenchID:   wb.ID,
		WorkbenchName: wb.Name,
		Description:   wb.Description,
		Roles:         make(map[string][]RoleAssignment, len(standardRoles)),
		MissingRoles:  []string{},
	}
	for _, role := range standardRoles {
		rm.Roles[role] = []RoleAssignment{}
	}

	for rows.Next() {
		var ra RoleAssignment
		if err := rows.Scan(&ra.Agent, &ra.Role, &ra.AssignedAt, &ra.AssignedBy); err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		ra.WorkbenchID = wb.ID
		ra.WorkbenchName = wb.Name
		rm.Roles[ra.Role] = append(rm.Roles[ra.Role], ra)
		rm.TotalAssignments++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role assignments: %w", err)
	}

	for _, role := range standardRoles {
		if len(rm.Roles[role]) == 0 {
			rm.MissingRoles = append(rm.MissingRoles, role)
		}
	}
	return rm, nil
}

// GetAgentRoles returns every active role an agent holds, ordered by
// workbench name then role.
func (s *Store) GetAgentRoles(ctx context.Context, agent string) ([]RoleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.name, wr.role, wr.workbench_id, wr.assigned_at, wr.assigned_by
		FROM workbench_roles wr
		JOIN workbench w ON wr.workbench_id = w.id
		WHERE wr.agent = ? AND wr.is_active = 1
		ORDER BY w.name, wr.role
	`, agent)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent roles: %w", err)
	}
	defer rows.Close()

	var assignments []RoleAssignment
	for rows.Next() {
		ra := RoleAssignment{Agent: agent}
		if err := rows.Scan(&ra.WorkbenchName, &ra.Role, &ra.WorkbenchID, &ra.AssignedAt, &ra.AssignedBy); err != nil {
			return nil, fmt.Errorf("failed to scan agent role: %w", err)
		}
		assignments = append(assignments, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent roles: %w", err)
	}
	return assignments, nil
}

// CoverageReport computes per-workbench role coverage plus the aggregate
// gap totals. A fully covered workbench has at least one agent in each of
// the four standard roles.
func (s *Store) CoverageReport(ctx context.Context) (*CoverageReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name,
		       COUNT(CASE WHEN wr.role = 'Assessor' THEN 1 END) AS assessors,
		       COUNT(CASE WHEN wr.role = 'Reviewer' THEN 1 END) AS reviewers,
		       COUNT(CASE WHEN wr.role = 'Team Lead' THEN 1 END) AS team_leads,
		       COUNT(CASE WHEN wr.role = 'Viewer' THEN 1 END) AS viewers,
		       COUNT(wr.id) AS total_assignments
		FROM workbench w
		LEFT JOIN workbench_roles wr ON w.id = wr.workbench_id AND wr.is_active = 1
		GROUP BY w.id, w.name
		ORDER BY w.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	defer rows.Close()

	report := &CoverageReport{Workbenches: []WorkbenchCoverage{}}
	for rows.Next() {
		var wc WorkbenchCoverage
		err := rows.Scan(
			&wc.WorkbenchID, &wc.WorkbenchName,
			&wc.Assessors, &wc.Reviewers, &wc.TeamLeads, &wc.Viewers,
			&wc.TotalAssignments,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}
		wc.CoveragePercentage = float64(wc.TotalAssignments) / float64(len(standardRoles)) * 100
		gap := len(standardRoles) - wc.TotalAssignments
		if gap < 0 {
			gap = 0
		}
		wc.Gaps = gap

		report.Workbenches = append(report.Workbenches, wc)
		report.TotalRoleGaps += wc.Gaps
		if wc.Gaps == 0 {
			report.FullyCoveredWorkbenches++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage rows: %w", err)
	}
	report.TotalWorkbenches = len(report.Workbenches)
	return report, nil
}

func isStandardRole(role string) bool {
	for _, r := range standardRoles {
		if r == role {
			return true
		}
	}
	return false
}
