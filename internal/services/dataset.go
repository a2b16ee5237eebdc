package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tessitura-labs/lookback-api/internal/logger"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/metrics"
	"github.com/tessitura-labs/lookback-api/internal/models"
	"gorm.io/gorm"
)

const (
	exampleBatchSize = 100
	minMelodySteps   = 2 // EncodeSequence needs at least one input/label pair
)

// ErrInvalidMelody marks build failures caused by the submitted melodies.
// Handlers map it to a client error.
var ErrInvalidMelody = errors.New("invalid melody")

// DatasetService encodes melody batches into training examples and persists
// them. Builds fan the encode work out over a fixed worker pool.
type DatasetService struct {
	db      *gorm.DB
	cw      *metrics.Client
	metrics *metrics.SentryMetrics
	workers int
}

func NewDatasetService(db *gorm.DB, cw *metrics.Client, workers int) *DatasetService {
	if workers < 1 {
		workers = 1
	}
	return &DatasetService{
		db:      db,
		cw:      cw,
		metrics: metrics.NewSentryMetrics(),
		workers: workers,
	}
}

// BuildRequest describes one dataset build
type BuildRequest struct {
	Name      string
	Profile   string
	CreatedBy string
	Melodies  []models.Melody
}

// BuildDataset encodes every melody with the given encoder and persists the
// dataset and its examples in one transaction. Nothing is stored if any
// melody fails to encode.
func (s *DatasetService) BuildDataset(ctx context.Context, enc *lookback.Encoder, req BuildRequest) (*models.Dataset, error) {
	start := time.Now()

	examples, totalSteps, err := s.encodeMelodies(enc, req.Melodies)
	if err != nil {
		s.recordBuild(ctx, time.Since(start), false, 0)
		return nil, err
	}

	// One training pair per step transition
	examplePairs := totalSteps - len(examples)

	dataset := &models.Dataset{
		Name:            req.Name,
		Profile:         req.Profile,
		MinNote:         enc.MinNote(),
		MaxNote:         enc.MaxNote(),
		TransposeToKey:  enc.TransposeToKey(),
		Lookbacks:       formatLookbacks(enc.LookbackDistances()),
		InputSize:       enc.InputSize(),
		NumClasses:      enc.NumClasses(),
		MelodyCount:     len(req.Melodies),
		StepCount:       totalSteps,
		ExampleCount:    examplePairs,
		BuildDurationMS: int(time.Since(start).Milliseconds()),
		CreatedBy:       req.CreatedBy,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dataset).Error; err != nil {
			return err
		}
		for i := range examples {
			examples[i].DatasetID = dataset.ID
		}
		return tx.CreateInBatches(&examples, exampleBatchSize).Error
	})
	if err != nil {
		s.recordBuild(ctx, time.Since(start), false, 0)
		return nil, fmt.Errorf("failed to persist dataset: %w", err)
	}

	s.recordBuild(ctx, time.Since(start), true, examplePairs)

	logger.Info("Dataset built", logger.Fields{
		"dataset_id": dataset.ID,
		"name":       dataset.Name,
		"melodies":   dataset.MelodyCount,
		"examples":   dataset.ExampleCount,
	})

	return dataset, nil
}

// encodeMelodies validates and encodes the batch on the worker pool. Results
// keep the submission order.
func (s *DatasetService) encodeMelodies(enc *lookback.Encoder, melodies []models.Melody) ([]models.SequenceExample, int, error) {
	start := time.Now()

	examples := make([]models.SequenceExample, len(melodies))
	errs := make([]error, len(melodies))

	workers := s.workers
	if workers > len(melodies) {
		workers = len(melodies)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				examples[i], errs[i] = encodeExample(enc, i, melodies[i])
			}
		}()
	}

	for i := range melodies {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	totalSteps := 0
	for i := range errs {
		if errs[i] != nil {
			return nil, 0, errs[i]
		}
		totalSteps += examples[i].NumSteps
	}

	s.metrics.RecordPerformanceMetric("dataset.encode", time.Since(start), map[string]interface{}{
		"melodies": len(melodies),
		"steps":    totalSteps,
		"workers":  workers,
	})

	return examples, totalSteps, nil
}

func encodeExample(enc *lookback.Encoder, index int, melody models.Melody) (models.SequenceExample, error) {
	events := melody.Events()
	if len(events) < minMelodySteps {
		return models.SequenceExample{}, fmt.Errorf("%w %d: needs at least %d events, got %d",
			ErrInvalidMelody, index, minMelodySteps, len(events))
	}
	if err := enc.ValidateEvents(events); err != nil {
		return models.SequenceExample{}, fmt.Errorf("%w %d: %v", ErrInvalidMelody, index, err)
	}

	inputs, labels := enc.EncodeSequence(events)

	eventsJSON, err := json.Marshal(melody)
	if err != nil {
		return models.SequenceExample{}, fmt.Errorf("melody %d: marshal events: %w", index, err)
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return models.SequenceExample{}, fmt.Errorf("melody %d: marshal inputs: %w", index, err)
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return models.SequenceExample{}, fmt.Errorf("melody %d: marshal labels: %w", index, err)
	}

	return models.SequenceExample{
		Position: index,
		NumSteps: len(events),
		Events:   string(eventsJSON),
		Inputs:   string(inputsJSON),
		Labels:   string(labelsJSON),
	}, nil
}

// ListDatasets returns datasets newest first with a total count
func (s *DatasetService) ListDatasets(page, pageSize int) ([]models.Dataset, int64, error) {
	var datasets []models.Dataset
	offset := (page - 1) * pageSize

	if err := s.db.Model(&models.Dataset{}).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&datasets).Error; err != nil {
		return nil, 0, err
	}

	var totalCount int64
	if err := s.db.Model(&models.Dataset{}).Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	return datasets, totalCount, nil
}

// GetDataset returns one dataset by ID
func (s *DatasetService) GetDataset(id uint) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.db.First(&dataset, id).Error; err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetDatasetExamples returns a page of a dataset's encoded examples in
// submission order
func (s *DatasetService) GetDatasetExamples(id uint, page, pageSize int) ([]models.SequenceExample, int64, error) {
	if _, err := s.GetDataset(id); err != nil {
		return nil, 0, err
	}

	var examples []models.SequenceExample
	offset := (page - 1) * pageSize

	if err := s.db.Where("dataset_id = ?", id).
		Order("position ASC").
		Limit(pageSize).
		Offset(offset).
		Find(&examples).Error; err != nil {
		return nil, 0, err
	}

	var totalCount int64
	if err := s.db.Model(&models.SequenceExample{}).
		Where("dataset_id = ?", id).
		Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	return examples, totalCount, nil
}

// DeleteDataset removes a dataset and its examples
func (s *DatasetService) DeleteDataset(id uint) error {
	if _, err := s.GetDataset(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", id).Delete(&models.SequenceExample{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Dataset{}, id).Error
	})
}

func (s *DatasetService) recordBuild(ctx context.Context, duration time.Duration, success bool, examples int) {
	if s.cw != nil {
		s.cw.RecordDatasetBuild(duration, success, examples)
	}
	s.metrics.RecordDatasetBuildDuration(ctx, duration, success)
}

func formatLookbacks(distances []int) string {
	parts := make([]string, len(distances))
	for i, d := range distances {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
