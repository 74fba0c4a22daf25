package schedule

import "fmt"

// PowersOfTwo returns the τ list 2^from, 2^(from+1), ..., 2^to.
func PowersOfTwo(from, to int) []int {
	if from < 0 || to < from {
		return nil
	}
	taus := make([]int, 0, to-from+1)
	for e := from; e <= to; e++ {
		taus = append(taus, 1<<e)
	}
	return taus
}

// ValidateTaus checks that every τ is positive.
func ValidateTaus(taus []int) error {
	if len(taus) == 0 {
		return fmt.Errorf("tau schedule is empty")
	}
	for i, tau := range taus {
		if tau < 1 {
			return fmt.Errorf("tau[%d] = %d, must be positive", i, tau)
		}
	}
	return nil
}

// LinearBatch builds one Linear(start, end, τ) schedule per τ.
func LinearBatch(start, end float64, taus []int) ([]Schedule, error) {
	if err := ValidateTaus(taus); err != nil {
		return nil, err
	}
	batch := make([]Schedule, len(taus))
	for i, tau := range taus {
		s, err := Linear(start, end, tau)
		if err != nil {
			return nil, fmt.Errorf("tau %d: %w", tau, err)
		}
		batch[i] = s
	}
	return batch, nil
}
