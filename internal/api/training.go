package api

import (
	"context"
	"strconv"
)

// Training endpoints.
const (
	PathTrainings        = "/api/training/masters"
	PathActiveTrainings  = "/api/training/masters/active"
	PathBatches          = "/api/training/batches"
	PathAvailableBatches = "/api/training/batches/available"
	PathUpcomingBatches  = "/api/training/batches/upcoming"
)

// Training is a training programme offered to enrolled candidates.
type Training struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	SkillCategory string `json:"skillCategory,omitempty"`
	DurationDays  int    `json:"durationDays"`
	IsActive      bool   `json:"isActive"`
	TotalBatches  int    `json:"totalBatches"`
	ActiveBatches int    `json:"activeBatches"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// Batch is one scheduled run of a training.
type Batch struct {
	ID              int64  `json:"id"`
	TrainingID      int64  `json:"trainingId"`
	TrainingName    string `json:"trainingName,omitempty"`
	SkillCategory   string `json:"skillCategory,omitempty"`
	BatchCode       string `json:"batchCode"`
	StartDate       string `json:"startDate,omitempty"`
	EndDate         string `json:"endDate,omitempty"`
	MaxCapacity     int    `json:"maxCapacity"`
	CurrentEnrolled int    `json:"currentEnrolled"`
	AvailableSlots  int    `json:"availableSlots"`
	Location        string `json:"location,omitempty"`
	TrainerName     string `json:"trainerName,omitempty"`
	IsActive        bool   `json:"isActive"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// BatchFilter selects which batches Batches returns. The zero value lists
// every batch.
type BatchFilter struct {
	// TrainingID restricts the list to one training's batches.
	TrainingID int64
	// Available keeps batches with free slots.
	Available bool
	// Upcoming keeps batches that have not started.
	Upcoming bool
}

func (f BatchFilter) path() string {
	switch {
	case f.TrainingID > 0:
		return PathTrainings + "/" + strconv.FormatInt(f.TrainingID, 10) + "/batches"
	case f.Available:
		return PathAvailableBatches
	case f.Upcoming:
		return PathUpcomingBatches
	default:
		return PathBatches
	}
}

// Trainings lists trainings, optionally only the active ones.
func (c *Client) Trainings(ctx context.Context, activeOnly bool) ([]Training, error) {
	path := PathTrainings
	if activeOnly {
		path = PathActiveTrainings
	}
	var items []Training
	if err := c.getJSON(ctx, path, SchemaTrainingList, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Training fetches one training by ID.
func (c *Client) Training(ctx context.Context, id int64) (*Training, error) {
	var t Training
	if err := c.getJSON(ctx, PathTrainings+"/"+strconv.FormatInt(id, 10), SchemaTraining, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Batches lists training batches matching f. A training filter takes
// precedence over Available, which takes precedence over Upcoming.
func (c *Client) Batches(ctx context.Context, f BatchFilter) ([]Batch, error) {
	var items []Batch
	if err := c.getJSON(ctx, f.path(), SchemaBatchList, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Batch fetches one batch by ID.
func (c *Client) Batch(ctx context.Context, id int64) (*Batch, error) {
	var b Batch
	if err := c.getJSON(ctx, PathBatches+"/"+strconv.FormatInt(id, 10), SchemaBatch, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
