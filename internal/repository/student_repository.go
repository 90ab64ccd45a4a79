package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/pkg/database"
)

const insertStudentQuery = `INSERT INTO students (name, class_name, class_id) VALUES ($1, $2, $3) RETURNING id, created_at`

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a single student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	return insertStudent(ctx, r.db, student)
}

// CreateBatch inserts all students in one transaction; nothing is kept when any insert fails.
func (r *StudentRepository) CreateBatch(ctx context.Context, students []*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, student := range students {
			if err := insertStudent(ctx, tx, student); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertStudent(ctx context.Context, q sqlx.QueryerContext, student *models.Student) error {
	row := q.QueryRowxContext(ctx, insertStudentQuery, student.Name, student.ClassName, student.ClassID)
	if err := row.Scan(&student.ID, &student.CreatedAt); err != nil {
		return translate("create student", err)
	}
	return nil
}

// FindByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	const query = `SELECT id, name, class_name, class_id, created_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByClassName returns students tagged with exactly className, ordered by name.
func (r *StudentRepository) ListByClassName(ctx context.Context, className string) ([]models.Student, error) {
	const query = `SELECT id, name, class_name, class_id, created_at FROM students WHERE class_name = $1 ORDER BY name ASC, id ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, className); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// FilterIDsInClass returns the subset of ids that belong to className.
func (r *StudentRepository) FilterIDsInClass(ctx context.Context, className string, ids []int64) ([]int64, error) {
	const query = `SELECT id FROM students WHERE class_name = $1 AND id = ANY($2) ORDER BY id`
	found := make([]int64, 0, len(ids))
	if err := r.db.SelectContext(ctx, &found, query, className, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("filter students in class: %w", err)
	}
	return found, nil
}
