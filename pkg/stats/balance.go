package stats

import "math"

// ClassBalance splits a binary label column. Positive is the sum of the
// labels and Negative the number of zero labels, so labels outside {0,1}
// skew the split; Unexpected counts them so callers can report it.
type ClassBalance struct {
	Negative   int `json:"negative" yaml:"negative"`
	Positive   int `json:"positive" yaml:"positive"`
	Unexpected int `json:"unexpected,omitempty" yaml:"unexpected,omitempty"`
	Total      int `json:"total" yaml:"total"`
}

// Balance computes the class balance of labels.
func Balance(labels []float64) ClassBalance {
	b := ClassBalance{Total: len(labels)}
	for _, v := range labels {
		switch v {
		case 0:
			b.Negative++
		case 1:
		default:
			b.Unexpected++
		}
	}
	b.Positive = int(math.Round(Sum(labels)))
	return b
}

// Counts returns [negative, positive].
func (b ClassBalance) Counts() []int {
	return []int{b.Negative, b.Positive}
}

// PositiveRate is the share of positive labels among all rows.
func (b ClassBalance) PositiveRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Positive) / float64(b.Total)
}
