package nn

import (
	"fmt"
	"math"
)

// Sat clamps value to [min, max].
func Sat(value, max, min float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// ScaleValue maps value from [min, max] to [-1, 1].
func ScaleValue(value, max, min float64) float64 {
	if max == min {
		return 0
	}
	return (value*2 - (max + min)) / (max - min)
}

// UnscaleValue maps value from [-1, 1] back to [min, max].
func UnscaleValue(value, max, min float64) float64 {
	return min + (value+1)*(max-min)/2
}

// Avg returns the arithmetic mean of values.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns the population standard deviation of values.
func Std(values []float64) (float64, error) {
	avg, err := Avg(values)
	if err != nil {
		return 0, err
	}
	acc := 0.0
	for _, value := range values {
		d := value - avg
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(values))), nil
}
