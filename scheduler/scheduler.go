// Package scheduler provides automated model retraining and health monitoring
// for the diagnosis API. It handles the initial load-and-train at startup,
// cron-based retrains, and coordinates model publishing with the data
// container using dependency injection.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/symptomcheck/diagnosis-api/classifier"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
	"github.com/symptomcheck/diagnosis-api/matcher"
	"github.com/symptomcheck/diagnosis-api/metrics"
	"github.com/symptomcheck/diagnosis-api/validation"
)

// How many diseases the model info lists as most frequent.
const topDiseaseCount = 5

var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler owns the daily retrain cron and the model age watchdog.
type Scheduler struct {
	dataStore      interfaces.DataStore
	parser         interfaces.DatasetParser
	trainingPath   string
	treatmentsPath string
	retrainAt      string
	scheduler      *gocron.Scheduler

	// Factories, replaceable in tests
	newClassifier func() interfaces.Classifier
	newMatcher    func(vocabulary []string) interfaces.SymptomMatcher
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// retrainAt is one or more HH:MM times separated by semicolons.
func NewScheduler(dataStore interfaces.DataStore, parser interfaces.DatasetParser,
	trainingPath string, treatmentsPath string, retrainAt string) *Scheduler {
	return &Scheduler{
		dataStore:      dataStore,
		parser:         parser,
		trainingPath:   trainingPath,
		treatmentsPath: treatmentsPath,
		retrainAt:      retrainAt,
		scheduler:      gocron.NewScheduler(time.Local),
		newClassifier: func() interfaces.Classifier {
			return classifier.New(classifier.DefaultConfig())
		},
		newMatcher: func(vocabulary []string) interfaces.SymptomMatcher {
			return matcher.New(vocabulary)
		},
	}
}

// Start trains the initial model and schedules the daily retrains. A failed
// initial training is fatal; a failed scheduled retrain keeps the previous
// model serving.
func (s *Scheduler) Start() error {
	if err := s.retrainModel(); err != nil {
		logging.Error("Failed to perform initial model training", "error", err)
		return fmt.Errorf("initial model training failed: %w", err)
	}

	// Schedule daily retrains so refreshed dataset files on disk get picked up
	_, err := s.scheduler.Every(1).Days().At(s.retrainAt).Do(func() {
		if err := s.retrainModel(); err != nil {
			logging.Error("Failed to retrain model, keeping previous model", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule retrains", "error", err)
		return fmt.Errorf("failed to schedule retrains: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	return nil
}

// Stop halts the cron jobs. An in-flight retrain runs to completion.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RetrainNow runs a single load-train-publish cycle without scheduling
// anything. The CLI uses it to train before the first prompt.
func (s *Scheduler) RetrainNow() error {
	return s.retrainModel()
}

// retrainModel runs one load-train-publish cycle. The store's update gate
// keeps overlapping runs from training twice.
func (s *Scheduler) retrainModel() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Retrain already in progress, skipping this run")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Model training started")
	start := time.Now()

	dataset, treatments, err := s.parser.ParseDataset(s.trainingPath, s.treatmentsPath)
	if err != nil {
		logging.Error("Failed to load dataset", "error", err)
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	validator := validation.NewDataValidator()
	if err := validator.ValidateDataset(dataset); err != nil {
		logging.Error("Dataset failed validation", "error", err)
		return fmt.Errorf("dataset failed validation: %w", err)
	}

	report := validator.ReportDataQuality(dataset, treatments)

	if len(report.DroppedDiseases) > 0 {
		logging.Warn("Diseases dropped for insufficient samples",
			"total", len(report.DroppedDiseases),
			"diseases", report.DroppedDiseases,
		)
	}

	if report.DiseasesWithoutTreatment > 0 {
		logging.Warn("Diseases without treatment entries",
			"count", report.DiseasesWithoutTreatment,
		)
	}

	newClassifier := s.newClassifier()
	accuracy, err := newClassifier.Train(dataset.Rows)
	if err != nil {
		logging.Error("Failed to train model", "error", err)
		return fmt.Errorf("failed to train model: %w", err)
	}

	newMatcher := s.newMatcher(dataset.Symptoms)
	elapsed := time.Since(start)

	info := entities.ModelInfo{
		Accuracy:         accuracy,
		DiseaseCount:     len(newClassifier.Classes()),
		SymptomCount:     len(dataset.Symptoms),
		SampleCount:      len(dataset.Rows),
		TopDiseases:      topDiseases(dataset.DiseaseCounts, topDiseaseCount),
		DroppedDiseases:  dataset.DroppedDiseases,
		TrainingDuration: elapsed,
		TrainedAt:        time.Now(),
	}

	// Publish everything in one call so readers never see a half-swapped model.
	s.dataStore.UpdateModel(newClassifier, newMatcher, dataset.Symptoms,
		newClassifier.Classes(), treatments, info)

	metrics.ModelAccuracy.Set(accuracy)
	metrics.ModelTrainingDuration.Observe(elapsed.Seconds())
	metrics.ModelDiseaseClasses.Set(float64(info.DiseaseCount))
	metrics.ModelTrainingSamples.Set(float64(info.SampleCount))

	logging.Info("Model training completed",
		"duration", elapsed.String(),
		"accuracy", fmt.Sprintf("%.2f%%", accuracy*100),
		"diseases", info.DiseaseCount,
		"symptoms", info.SymptomCount,
		"samples", info.SampleCount)

	for _, frequency := range info.TopDiseases {
		logging.Info("Most common disease in dataset",
			"disease", frequency.Disease, "cases", frequency.Count)
	}

	return nil
}

// topDiseases returns the count most frequent diseases, ordered by sample
// count descending with names breaking ties so the result is deterministic.
func topDiseases(counts map[string]int, count int) []entities.DiseaseFrequency {
	frequencies := make([]entities.DiseaseFrequency, 0, len(counts))
	for disease, sampleCount := range counts {
		frequencies = append(frequencies, entities.DiseaseFrequency{
			Disease: disease,
			Count:   sampleCount,
		})
	}

	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].Count != frequencies[j].Count {
			return frequencies[i].Count > frequencies[j].Count
		}
		return frequencies[i].Disease < frequencies[j].Disease
	})

	if len(frequencies) > count {
		frequencies = frequencies[:count]
	}
	return frequencies
}

// startHealthMonitoring warns hourly once the published model is older than
// a day plus slack, which means the daily retrain stopped happening.
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			lastUpdate := s.dataStore.GetLastUpdated()
			if time.Since(lastUpdate) > 25*time.Hour {
				logging.Warn("Model has not been retrained in over 25 hours")
			}
		}
	}()
}
