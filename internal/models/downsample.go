package models

// Downsample reduces a series to at most maxPoints using uniform stride
// sampling over the index range, always keeping the true last point so the
// most recent observation survives even when the stride would skip it.
//
// The result has exactly maxPoints elements when the input is larger, and is
// the input unchanged otherwise. The first and last input points are always
// included. Pure function: same input, same output.
func Downsample(s Series, maxPoints int) Series {
	if maxPoints < 2 || len(s) <= maxPoints {
		return s
	}

	step := float64(len(s)-1) / float64(maxPoints-1)
	out := make(Series, 0, maxPoints)
	for i := 0; i < maxPoints-1; i++ {
		out = append(out, s[int(float64(i)*step)])
	}
	return append(out, s[len(s)-1])
}
