package dataset

import (
	"math"
	"math/rand"
)

// Split shuffles rows with rnd and holds out testRatio of them. Ratios
// outside (0,1) fall back to 0.2. At least one row always stays in the
// training partition.
func Split(features [][]float64, labels []int, testRatio float64, rnd *rand.Rand) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	n := len(features)
	testSize := int(math.Ceil(float64(n) * testRatio))
	if testSize >= n {
		testSize = n - 1
	}
	if testSize < 0 {
		testSize = 0
	}

	indices := rnd.Perm(n)
	split := n - testSize
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
