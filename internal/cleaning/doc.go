// Package cleaning implements the measurement cleaning pipeline: missing
// value detection and imputation, Z-score outlier flagging, Winsorization
// and derived calendar features.
//
// A Cleaner owns a private working copy of its input and accumulates a
// CleaningReport across one Clean run. Detection and capping inside a run
// share one set of per-column statistics computed after imputation.
package cleaning
