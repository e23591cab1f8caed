package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Eps guards logarithms and divisions against zero energy.
const Eps = 1e-12

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Percentile calculates the p-th percentile (p between 0 and 1) with linear
// interpolation between closest ranks, rank = p*(n-1).
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// PeakAbs returns max |x|.
func PeakAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// AmplitudeDB converts an RMS or peak amplitude to dBFS with a 1e-9 floor.
func AmplitudeDB(amplitude float64) float64 {
	return 20 * math.Log10(amplitude+1e-9)
}

// PowerDB converts a power value to dB, guarded by Eps.
func PowerDB(power float64) float64 {
	return 10 * math.Log10(power+Eps)
}

// LinRegression performs simple linear regression and returns slope, intercept, r²
func LinRegression(x, y []float64) (slope, intercept, rSquared float64) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, 0
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	rSquared = stat.RSquared(x, y, nil, alpha, beta)
	if math.IsNaN(rSquared) || math.IsInf(rSquared, 0) {
		rSquared = 0.0
	}

	return beta, alpha, rSquared
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Lerp maps x from [x0, x1] onto [y0, y1] without clamping.
func Lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// Scale01 maps x from [lo, hi] onto [0, 100], clamped.
func Scale01(x, lo, hi float64) float64 {
	return Clamp(Lerp(x, lo, hi, 0, 100), 0, 100)
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// FrameCount returns how many full frames of frameSize fit in n samples at
// the given hop
func FrameCount(n, frameSize, hopSize int) int {
	if n < frameSize || frameSize <= 0 || hopSize <= 0 {
		return 0
	}
	return (n-frameSize)/hopSize + 1
}

// ParabolicPeak refines the location and height of a local maximum at i
// using the two neighbouring samples.
func ParabolicPeak(data []float64, i int) (offset, value float64) {
	if i <= 0 || i >= len(data)-1 {
		return 0, data[i]
	}

	y1, y2, y3 := data[i-1], data[i], data[i+1]
	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2
	if a >= 0 {
		return 0, y2
	}

	offset = -b / (2 * a)
	value = y2 - b*b/(4*a)
	return offset, value
}

// FiniteMean returns the mean of the finite values in data and how many there were.
func FiniteMean(data []float64) (float64, int) {
	sum, n := 0.0, 0
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return sum / float64(n), n
}

// Float returns a pointer to v, or nil when v is not finite. Metric results
// use it so that infeasible computations serialize as null.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// WeightedMean averages the non-nil values with their weights, renormalizing
// over whatever is present. ok is false when nothing was available.
func WeightedMean(values []*float64, weights []float64) (mean float64, ok bool) {
	total, sum := 0.0, 0.0
	for i, v := range values {
		if v == nil || i >= len(weights) {
			continue
		}
		sum += *v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return 0, false
	}
	return sum / total, true
}
