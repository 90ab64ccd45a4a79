package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
)

// RankingRepository aggregates attendance per class.
type RankingRepository struct {
	db *sqlx.DB
}

// NewRankingRepository constructs the repository.
func NewRankingRepository(db *sqlx.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// ClassTotals returns enrolled and present counts for every class with at least one student.
func (r *RankingRepository) ClassTotals(ctx context.Context, date string) ([]models.ClassAttendanceTotal, error) {
	const query = `SELECT c.id AS class_id, c.name AS class_name,
COUNT(DISTINCT s.id) AS enrolled,
COUNT(DISTINCT a.student_id) AS present
FROM classes c
JOIN students s ON s.class_id = c.id
LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $1 AND a.present = 1
GROUP BY c.id, c.name
ORDER BY c.name ASC`
	totals := make([]models.ClassAttendanceTotal, 0)
	if err := r.db.SelectContext(ctx, &totals, query, date); err != nil {
		return nil, fmt.Errorf("class attendance totals: %w", err)
	}
	return totals, nil
}
