// Package testutil provides common utility functions for testing.
package testutil

// FindStep finds a status step by exact text in the step list.
// Returns the index of the first match, -1 otherwise.
func FindStep(steps []string, text string) int {
	for i, step := range steps {
		if step == text {
			return i
		}
	}
	return -1
}

// FloatPtr returns a pointer to the given value, for seeding optional
// objective values in tests.
func FloatPtr(v float64) *float64 {
	return &v
}
