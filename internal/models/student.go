package models

import "time"

// Student represents a learner enrolled in one class.
// ClassName is the legacy denormalized copy; ClassID is the enforced reference.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassName string    `db:"class_name" json:"class_name"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
