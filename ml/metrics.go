package ml

// Metrics summarises binary classification quality on held-out rows.
type Metrics struct {
	Samples   int     `json:"samples"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate scores model on testX/testY treating positive as the positive
// class. Rows the model fails on count as misclassified.
func Evaluate(model Classifier, testX [][]float64, testY []int, positive int) Metrics {
	if len(testX) == 0 {
		return Metrics{}
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range testX {
		if testY[i] == positive {
			actualPositive++
		}
		label, _, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == positive {
			predictedPositive++
			if testY[i] == positive {
				truePositive++
			}
		}
	}

	m := Metrics{
		Samples:  len(testX),
		Accuracy: float64(correct) / float64(len(testX)),
	}
	if predictedPositive > 0 {
		m.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		m.Recall = float64(truePositive) / float64(actualPositive)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
