package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/pkg/database"
)

// Duplicate (student_id, date) pairs are absorbed by the unique constraint.
const recordPresenceQuery = `INSERT INTO attendance (student_id, date, present) VALUES ($1, $2, 1)
ON CONFLICT (student_id, date) DO NOTHING`

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Record marks a student present on date. It reports whether a new row was written.
func (r *AttendanceRepository) Record(ctx context.Context, studentID int64, date string) (bool, error) {
	return recordPresence(ctx, r.db, studentID, date)
}

// RecordMany marks every student present on date inside one transaction and returns the number of new rows.
func (r *AttendanceRepository) RecordMany(ctx context.Context, studentIDs []int64, date string) (int, error) {
	created := 0
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, id := range studentIDs {
			inserted, err := recordPresence(ctx, tx, id, date)
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func recordPresence(ctx context.Context, exec sqlx.ExecerContext, studentID int64, date string) (bool, error) {
	res, err := exec.ExecContext(ctx, recordPresenceQuery, studentID, date)
	if err != nil {
		return false, translate("record presence", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record presence rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountPresent returns the number of distinct students of className present on date.
func (r *AttendanceRepository) CountPresent(ctx context.Context, className, date string) (int, error) {
	const query = `SELECT COUNT(DISTINCT a.student_id)
FROM attendance a
JOIN students s ON s.id = a.student_id
WHERE s.class_name = $1 AND a.date = $2 AND a.present = 1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, className, date); err != nil {
		return 0, fmt.Errorf("count present: %w", err)
	}
	return count, nil
}

// Roster lists the students of className with their presence flag on date.
func (r *AttendanceRepository) Roster(ctx context.Context, className, date string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.name,
EXISTS (SELECT 1 FROM attendance a WHERE a.student_id = s.id AND a.date = $2 AND a.present = 1) AS present
FROM students s
WHERE s.class_name = $1
ORDER BY s.name ASC, s.id ASC`
	rows := make([]models.RosterEntry, 0)
	if err := r.db.SelectContext(ctx, &rows, query, className, date); err != nil {
		return nil, fmt.Errorf("attendance roster: %w", err)
	}
	return rows, nil
}
