// Package trace records the steps of an LS-8 run as a table, for export
// as CSV or Parquet.
package trace
