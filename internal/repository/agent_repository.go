package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the postgres-backed agent directory.
func NewAgentRepository(pool *pgxpool.Pool) AgentDirectory {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Find(ctx context.Context, filter AgentFilter) ([]Agent, error) {
	base := `SELECT id, name, department, role, active, created_at FROM agents`
	clauses := []string{"active = TRUE"}
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at ASC LIMIT %d`,
		base, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Agent
	for rows.Next() {
		var agent Agent
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Department, &agent.Role, &agent.Active, &agent.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}
