package models

// ClassAttendanceTotal is the per-class aggregate for one date.
type ClassAttendanceTotal struct {
	ClassID   int64  `db:"class_id"`
	ClassName string `db:"class_name"`
	Enrolled  int    `db:"enrolled"`
	Present   int    `db:"present"`
}

// RankingEntry is one ranked class.
type RankingEntry struct {
	Position   int     `json:"position"`
	ClassName  string  `json:"class_name"`
	Present    int     `json:"present"`
	Enrolled   int     `json:"enrolled"`
	Percentage float64 `json:"percentage"`
}

// Ranking orders classes by attendance percentage for one date.
// Winner is nil when no ranking is available.
type Ranking struct {
	Date    string         `json:"date"`
	Entries []RankingEntry `json:"entries"`
	Winner  *RankingEntry  `json:"winner"`
}

// Available reports whether the ranking has at least one class.
func (r *Ranking) Available() bool {
	return r != nil && len(r.Entries) > 0
}
