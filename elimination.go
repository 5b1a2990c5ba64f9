package gjinverse

// normalize divides row by its entry at col in place. A zero pivot is not
// guarded here; the caller decides whether to check a tolerance first.
func normalize(row []float64, col int) {
	pivot := row[col]
	for j := range row {
		row[j] /= pivot
	}
}

// eliminate drives column col to zero in every local row except the pivot
// row itself, using the broadcast pivot row.
func eliminate(s *RowSlice, col int, pivot []float64) {
	for i, row := range s.Rows {
		if s.Global(i) == col {
			continue
		}
		factor := row[col]
		for j := range row {
			row[j] -= factor * pivot[j]
		}
	}
}
