package classifier

import (
	"math/rand"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
)

// stratifiedSplit partitions row indexes into train and test sets so that
// every disease contributes the same fraction to the test set that it has in
// the full data. Each class keeps at least one sample on both sides, which is
// why classes with fewer than two samples must be filtered out before
// training.
func stratifiedSplit(rows []entities.TrainingRow, testFraction float64, rng *rand.Rand) ([]int, []int) {
	byDisease := make(map[string][]int)
	order := make([]string, 0)
	for i, row := range rows {
		if _, seen := byDisease[row.Disease]; !seen {
			order = append(order, row.Disease)
		}
		byDisease[row.Disease] = append(byDisease[row.Disease], i)
	}

	train := make([]int, 0, len(rows))
	test := make([]int, 0, len(rows)/4)

	// Iterate in first-seen order so the same seed always produces the
	// same split
	for _, disease := range order {
		indexes := byDisease[disease]
		rng.Shuffle(len(indexes), func(i, j int) {
			indexes[i], indexes[j] = indexes[j], indexes[i]
		})

		testCount := int(float64(len(indexes))*testFraction + 0.5)
		if testCount < 1 {
			testCount = 1
		}
		if testCount >= len(indexes) {
			testCount = len(indexes) - 1
		}

		test = append(test, indexes[:testCount]...)
		train = append(train, indexes[testCount:]...)
	}

	return train, test
}

// bootstrapSample draws len(indexes) samples with replacement.
func bootstrapSample(indexes []int, rng *rand.Rand) []int {
	sample := make([]int, len(indexes))
	for i := range sample {
		sample[i] = indexes[rng.Intn(len(indexes))]
	}
	return sample
}
