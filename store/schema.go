// Package store implements the normalized relational Metadata Store: five
// dimension tables with race-free upsert, and two append-only fact tables.
package store

import "time"

// Dimension identifies one of the five deduplicating lookup tables by its
// table name. Values are restricted to the five constants below, so
// building SQL by formatting a Dimension into a query string carries no
// injection risk — no caller ever supplies an arbitrary Dimension.
type Dimension string

const (
	DimensionJobs     Dimension = "eas_jobs"
	DimensionTDACodes Dimension = "eas_tda_codes"
	DimensionServers  Dimension = "eas_servers"
	DimensionTargets  Dimension = "eas_targets"
	DimensionTasks    Dimension = "eas_tasks"
)

var allDimensions = []Dimension{DimensionJobs, DimensionTDACodes, DimensionServers, DimensionTargets, DimensionTasks}

func (d Dimension) valid() bool {
	for _, known := range allDimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Job is the eas_jobs dimension row.
type Job struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (Job) TableName() string { return string(DimensionJobs) }

// TDACode is the eas_tda_codes dimension row.
type TDACode struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (TDACode) TableName() string { return string(DimensionTDACodes) }

// Server is the eas_servers dimension row.
type Server struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (Server) TableName() string { return string(DimensionServers) }

// Target is the eas_targets dimension row.
type Target struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (Target) TableName() string { return string(DimensionTargets) }

// Task is the eas_tasks dimension row.
type Task struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (Task) TableName() string { return string(DimensionTasks) }

// RunTime is one eas_run_times fact row.
type RunTime struct {
	RunID                 uint `gorm:"primaryKey;autoIncrement"`
	JobID                 uint `gorm:"not null"`
	CodeID                uint `gorm:"not null"`
	ServerID              uint `gorm:"not null"`
	TargetID              uint `gorm:"not null"`
	TaskID                uint `gorm:"not null"`
	LCLength              float64
	Timestamp             time.Time
	RunTimeWallClock      float64
	RunTimeCPU            float64
	RunTimeCPUIncChildren float64
}

func (RunTime) TableName() string { return "eas_run_times" }

// Result is one eas_results fact row. Results holds the inline summary
// JSON when it serializes under the 1MB threshold; otherwise it is empty
// and ResultFilename names the relocated extended-payload file.
type Result struct {
	RunID          uint `gorm:"primaryKey;autoIncrement"`
	JobID          uint `gorm:"not null"`
	CodeID         uint `gorm:"not null"`
	ServerID       uint `gorm:"not null"`
	TargetID       uint `gorm:"not null"`
	TaskID         uint `gorm:"not null"`
	LCLength       float64
	Timestamp      time.Time
	Results        string `gorm:"type:text"`
	ResultFilename string
}

func (Result) TableName() string { return "eas_results" }
