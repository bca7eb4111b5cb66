package ml

// separable returns rows where label is 1 exactly when the first feature
// exceeds 5; the second feature is noise.
func separable(n int) ([][]float64, []int) {
	x := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		v := float64(i%10) + 0.5
		x[i] = []float64{v, float64((i * 7) % 13)}
		if v > 5 {
			y[i] = 1
		}
	}
	return x, y
}
