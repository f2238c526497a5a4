package rules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadDirectory reads the activated mail rules from the parsers table and
// compiles them into a Directory. Rules with an empty sender pattern never
// match anything and are excluded at the query level.
func LoadDirectory(ctx context.Context, pool *pgxpool.Pool) (*Directory, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, name, from_pattern, subject_filter, html_filter, payload, version
		FROM parsers
		WHERE activated AND from_pattern <> '' AND type IN ('mail', '')
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query parsers: %w", err)
	}
	defer rows.Close()

	var list []*Rule
	for rows.Next() {
		rule := &Rule{}
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.From, &rule.SubjectFilter,
			&rule.HTMLFilter, &rule.Payload, &rule.Version); err != nil {
			return nil, fmt.Errorf("failed to scan parser row: %w", err)
		}
		list = append(list, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parsers: %w", err)
	}

	return NewDirectory(list)
}
