package optimize

// BuildSchedule returns the per-iteration grid sizes for a variable-grid
// session. Index i holds the voxel size in cm to apply before iteration i, or
// zero when the grid is left alone that pass. sizes must hold the four grid
// sizes ordered coarse to fine, as the configuration layer validates.
//
// Counts of four and below use a fixed table rather than the checkpoint rule;
// the table is deliberately not generalized. Larger counts place the four
// sizes at iterations 0, n/2, 3n/4, and n-1. Should two checkpoints ever
// collide, the later one wins and the schedule carries fewer changes, never
// more.
func BuildSchedule(iterations int, sizes []float64) []float64 {
	if iterations <= 0 || len(sizes) < 4 {
		return nil
	}
	switch iterations {
	case 1:
		return []float64{sizes[3]}
	case 2:
		return []float64{sizes[0], sizes[3]}
	case 3:
		return []float64{sizes[0], 0, sizes[3]}
	case 4:
		return []float64{sizes[0], sizes[1], sizes[2], sizes[3]}
	}

	checkpoints := [4]int{0, iterations / 2, 3 * iterations / 4, iterations - 1}
	schedule := make([]float64, iterations)
	for c, at := range checkpoints {
		schedule[at] = sizes[c]
	}
	return schedule
}
