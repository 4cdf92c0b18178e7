package marks

import "math"

// GradeNA is reported for a student with no marks on record.
const GradeNA = "N/A"

// Percentage derives a record's percentage from the obtained/max pair:
// round(100 * obtained / max). Never trusted from input.
func Percentage(obtained, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(obtained) / float64(max)))
}

// RecordGrade is the per-record grade ladder applied at save time.
// It is deliberately NOT the same ladder as OverallGrade: record grades have
// no D step. Do not unify the two.
func RecordGrade(pct int) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 85:
		return "A"
	case pct >= 80:
		return "A-"
	case pct >= 75:
		return "B+"
	case pct >= 70:
		return "B"
	case pct >= 65:
		return "B-"
	case pct >= 60:
		return "C+"
	case pct >= 55:
		return "C"
	case pct >= 50:
		return "C-"
	default:
		return "F"
	}
}

// OverallGrade is the per-student grade ladder applied to the average of all
// stored record percentages.
func OverallGrade(avg int) string {
	switch {
	case avg >= 90:
		return "A+"
	case avg >= 85:
		return "A"
	case avg >= 80:
		return "A-"
	case avg >= 75:
		return "B+"
	case avg >= 70:
		return "B"
	case avg >= 65:
		return "B-"
	case avg >= 60:
		return "C+"
	case avg >= 55:
		return "C"
	case avg >= 50:
		return "C-"
	case avg >= 40:
		return "D"
	default:
		return "F"
	}
}

// Overall computes a student's average marks and overall grade from all their
// records: round(mean of stored percentages), graded on the OverallGrade
// ladder; (0, "N/A") when there are no records. Pure function of the raw
// records; recomputing it is idempotent.
func Overall(records []Marks) (avg int, grade string) {
	if len(records) == 0 {
		return 0, GradeNA
	}
	var total int
	for _, rec := range records {
		total += rec.Percentage
	}
	avg = int(math.Round(float64(total) / float64(len(records))))
	return avg, OverallGrade(avg)
}
