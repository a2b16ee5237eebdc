package models

import (
	"time"

	"gorm.io/gorm"
)

// Dataset is a persisted batch of melodies encoded into training examples.
// The encoder configuration is denormalized onto the row so a dataset stays
// readable even after the active profile changes.
type Dataset struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Name            string         `gorm:"not null;index" json:"name"`
	Profile         string         `gorm:"not null" json:"profile"`
	MinNote         int            `gorm:"not null" json:"min_note"`
	MaxNote         int            `gorm:"not null" json:"max_note"`
	TransposeToKey  int            `gorm:"not null" json:"transpose_to_key"`
	Lookbacks       string         `gorm:"not null" json:"lookbacks"` // Comma-separated distances, e.g. "16,32"
	InputSize       int            `gorm:"not null" json:"input_size"`
	NumClasses      int            `gorm:"not null" json:"num_classes"`
	MelodyCount     int            `gorm:"default:0;not null" json:"melody_count"`
	StepCount       int            `gorm:"default:0;not null" json:"step_count"`
	ExampleCount    int            `gorm:"default:0;not null" json:"example_count"`
	BuildDurationMS int            `gorm:"not null" json:"build_duration_ms"`
	CreatedBy       string         `gorm:"index" json:"created_by"`
}

// SequenceExample is one melody from a dataset encoded into model inputs and
// labels. Events, inputs and labels are stored as JSON text columns.
type SequenceExample struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	DatasetID uint      `gorm:"not null;index" json:"dataset_id"`
	Dataset   Dataset   `gorm:"foreignKey:DatasetID" json:"-"`
	Position  int       `gorm:"not null" json:"position"` // Index of the melody within the submitted batch
	NumSteps  int       `gorm:"not null" json:"num_steps"`
	Events    string    `gorm:"type:text;not null" json:"events"`
	Inputs    string    `gorm:"type:text;not null" json:"inputs"`
	Labels    string    `gorm:"type:text;not null" json:"labels"`
}

// EncodeLog records one encode or decode call for usage accounting.
type EncodeLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	RequestID   string    `gorm:"index" json:"request_id"`
	UserID      string    `gorm:"index" json:"user_id"`
	Operation   string    `gorm:"not null;index" json:"operation"` // "input", "label", "sequence", "batch", "decode", "dataset"
	Profile     string    `gorm:"not null" json:"profile"`
	MelodyCount int       `gorm:"default:0" json:"melody_count"`
	StepCount   int       `gorm:"default:0" json:"step_count"`
	DurationMS  int       `gorm:"not null" json:"duration_ms"`
	Success     bool      `gorm:"default:true" json:"success"`
}
