// Package core defines the shared language of the LeapQuery system.
//
// This package contains:
//   - The declarative query configuration (QueryConfiguration and its parts)
//   - The closed SELECT grammar produced from a configuration (SelectStmt)
//   - Datasource, adapter and metadata types
//   - The error taxonomy surfaced to callers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
