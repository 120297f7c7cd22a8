package domain

import (
	"time"
)

// DatasetInfo describes a loaded measurement table.
type DatasetInfo struct {
	Rows           int       `json:"rows"`
	Columns        []string  `json:"columns"`
	NumericColumns []string  `json:"numeric_columns"`
	MinTimestamp   time.Time `json:"min_timestamp"`
	MaxTimestamp   time.Time `json:"max_timestamp"`
	MemoryBytes    int64     `json:"memory_bytes"`
}

// MissingValueStats summarizes null counts per column for one detection pass.
type MissingValueStats struct {
	TotalMissing    int                `json:"total_missing"`
	ByColumn        map[string]int     `json:"missing_by_column"`
	PercentByColumn map[string]float64 `json:"missing_percentage"`
	// HighMissingColumns holds the columns whose missing percentage exceeded
	// the detection threshold. Flagged only, never auto-handled.
	HighMissingColumns map[string]float64 `json:"high_missing_columns"`
}

// OutlierColumnStats records how many rows one column flagged as outliers.
type OutlierColumnStats struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percentage"`
}

// CleaningReport is the accumulated result of one full cleaning run.
// It is built once per Clean invocation and read-only afterwards.
type CleaningReport struct {
	MissingValues MissingValueStats             `json:"missing_values"`
	Outliers      map[string]OutlierColumnStats `json:"outliers"`
	TotalImputed  int                           `json:"total_imputed"`
	TotalOutliers int                           `json:"total_outliers"`
}

// MetricSummary holds the descriptive statistics for one metric at one site.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SiteSummary is one row of the cross-site comparison table.
type SiteSummary struct {
	Site         string                   `json:"site"`
	Metrics      map[string]MetricSummary `json:"metrics"`
	MinTimestamp time.Time                `json:"min_timestamp"`
	MaxTimestamp time.Time                `json:"max_timestamp"`
	Rows         int                      `json:"rows"`
}

// DailyMean is one point of a display-ready daily mean series.
type DailyMean struct {
	Date time.Time `json:"date"`
	Site string    `json:"site"`
	Mean float64   `json:"mean"`
}
