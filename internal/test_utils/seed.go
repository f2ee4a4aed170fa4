package test_utils

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedUsers inserts n bare users and returns their ids in insertion order.
func SeedUsers(ctx context.Context, pool *pgxpool.Pool, n int) ([]int, error) {
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("seed_user_%d", i+1)
		var id int
		err := pool.QueryRow(ctx,
			`INSERT INTO users (uid, username, display_name) VALUES ($1, $1, $1) RETURNING id`, name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
