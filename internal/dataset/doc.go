// Package dataset holds the in-memory table model (Frame) and the loader
// that reads CSV and XLSX measurement files into it.
package dataset
