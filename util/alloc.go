package util

// MakeSquare returns an n×n matrix of zeros, see MakeRectangular.
func MakeSquare(n uint) [][]float64 {
	return MakeRectangular(n, n)
}

// MakeRectangular returns a rows×cols matrix of zeros. The rows share
// one backing array, each row is capped so appending to it cannot spill
// into the next.
func MakeRectangular(rows, cols uint) [][]float64 {
	backing := make([]float64, rows*cols)
	rect := make([][]float64, rows)
	for i := range rect {
		start := uint(i) * cols
		rect[i] = backing[start : start+cols : start+cols]
	}
	return rect
}
