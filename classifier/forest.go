// Package classifier implements a random forest over binary symptom-presence
// vectors. Trees are grown on bootstrap samples with per-split feature
// subsampling and Gini impurity; class probabilities are the average of the
// leaf distributions across all trees.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
)

// ErrNotTrained is returned when predictions are requested before Train.
var ErrNotTrained = errors.New("model not trained")

// Fraction of the data held out for the accuracy estimate.
const testFraction = 0.2

// Config holds the forest hyperparameters. The zero value of any field is
// replaced by its default.
type Config struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// DefaultConfig returns the hyperparameters the service trains with.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Trees <= 0 {
		c.Trees = defaults.Trees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaults.MaxDepth
	}
	if c.MinSamplesSplit <= 0 {
		c.MinSamplesSplit = defaults.MinSamplesSplit
	}
	if c.MinSamplesLeaf <= 0 {
		c.MinSamplesLeaf = defaults.MinSamplesLeaf
	}
	return c
}

// Compile-time check to ensure RandomForest implements the classifier interface
var _ interfaces.Classifier = (*RandomForest)(nil)

// RandomForest is safe for concurrent reads after Train has returned.
type RandomForest struct {
	cfg          Config
	classes      []string
	trees        []*decisionTree
	featureCount int
	trained      bool
}

// New creates an untrained forest with the given configuration.
func New(cfg Config) *RandomForest {
	return &RandomForest{cfg: cfg.withDefaults()}
}

// Train grows the forest on a stratified 80% of the rows and returns the
// accuracy measured on the held-out 20%. The same seed always produces the
// same forest and the same accuracy.
func (f *RandomForest) Train(rows []entities.TrainingRow) (float64, error) {
	if len(rows) == 0 {
		return 0, errors.New("no training rows")
	}

	featureCount := len(rows[0].Features)
	if featureCount == 0 {
		return 0, errors.New("training rows have no features")
	}
	for i, row := range rows {
		if len(row.Features) != featureCount {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row.Features), featureCount)
		}
	}

	classes, labels := encodeLabels(rows)
	if len(classes) < 2 {
		return 0, fmt.Errorf("need at least 2 disease classes to train, got %d", len(classes))
	}

	features := make([][]float64, len(rows))
	for i, row := range rows {
		features[i] = row.Features
	}

	rng := rand.New(rand.NewSource(f.cfg.Seed))
	trainIdx, testIdx := stratifiedSplit(rows, testFraction, rng)

	maxFeatures := int(math.Sqrt(float64(featureCount)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	// Per-tree seeds are drawn up front so tree growth stays deterministic
	// no matter how the goroutines are scheduled
	seeds := make([]int64, f.cfg.Trees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*decisionTree, f.cfg.Trees)
	var wg sync.WaitGroup
	wg.Add(f.cfg.Trees)

	for i := 0; i < f.cfg.Trees; i++ {
		go func(i int) {
			defer wg.Done()
			treeRng := rand.New(rand.NewSource(seeds[i]))
			builder := &treeBuilder{
				features:        features,
				labels:          labels,
				classCount:      len(classes),
				maxDepth:        f.cfg.MaxDepth,
				minSamplesSplit: f.cfg.MinSamplesSplit,
				minSamplesLeaf:  f.cfg.MinSamplesLeaf,
				maxFeatures:     maxFeatures,
				rng:             treeRng,
			}
			trees[i] = builder.build(bootstrapSample(trainIdx, treeRng))
		}(i)
	}

	wg.Wait()

	f.classes = classes
	f.trees = trees
	f.featureCount = featureCount
	f.trained = true

	return f.evaluate(features, labels, testIdx), nil
}

// PredictProba returns one probability per class, aligned with Classes().
// The probabilities sum to 1 up to floating-point error.
func (f *RandomForest) PredictProba(input []float64) ([]float64, error) {
	if !f.trained {
		return nil, ErrNotTrained
	}
	if len(input) != f.featureCount {
		return nil, fmt.Errorf("input has %d features, expected %d", len(input), f.featureCount)
	}

	avg := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		for i, p := range tree.classDistribution(input) {
			avg[i] += p
		}
	}
	for i := range avg {
		avg[i] /= float64(len(f.trees))
	}
	return avg, nil
}

// Classes returns the class labels in the order PredictProba reports them.
func (f *RandomForest) Classes() []string {
	return f.classes
}

// Trained reports whether the forest has been trained.
func (f *RandomForest) Trained() bool {
	return f.trained
}

func (f *RandomForest) evaluate(features [][]float64, labels []int, testIdx []int) float64 {
	if len(testIdx) == 0 {
		return 0
	}
	correct := 0
	for _, idx := range testIdx {
		proba, err := f.PredictProba(features[idx])
		if err != nil {
			continue
		}
		if argmax(proba) == labels[idx] {
			correct++
		}
	}
	return float64(correct) / float64(len(testIdx))
}

// encodeLabels maps each disease to a class index. Classes are sorted
// alphabetically so the class order is independent of row order.
func encodeLabels(rows []entities.TrainingRow) ([]string, []int) {
	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, row := range rows {
		if !seen[row.Disease] {
			seen[row.Disease] = true
			classes = append(classes, row.Disease)
		}
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}

	labels := make([]int, len(rows))
	for i, row := range rows {
		labels[i] = index[row.Disease]
	}
	return classes, labels
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
