// Package pipeline holds the ingest stage that turns fetcher output into
// persisted rows (games, lineups, pitch events, odds, weather) plus the
// error-kind vocabulary spec.md §7 assigns exit codes to. Generalized from
// original_source's per-stage exception hierarchy, which this port
// collapses into one FatalError carrying a Kind so cmd/mlbedge can map it
// to an exit code without a type switch per call site.
package pipeline

import "fmt"

// ErrorKind names one of spec.md §7's five error kinds. Only Invariant and
// Schema are fatal; TransientFetch, DataMissing, and Logic are absorbed into
// risk flags or retried and never reach a FatalError.
type ErrorKind string

const (
	KindInvariant ErrorKind = "invariant"
	KindSchema    ErrorKind = "schema"
)

// FatalError is a stage-level error that must abort the run and exit
// non-zero, per spec.md §7's propagation policy ("Invariant... Fatal;
// process exits non-zero; nothing is written").
type FatalError struct {
	Kind ErrorKind
	Stage string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewInvariantError wraps err as a fatal Invariant violation for stage.
func NewInvariantError(stage string, err error) *FatalError {
	return &FatalError{Kind: KindInvariant, Stage: stage, Err: err}
}

// NewSchemaError wraps err as a fatal Schema failure for stage.
func NewSchemaError(stage string, err error) *FatalError {
	return &FatalError{Kind: KindSchema, Stage: stage, Err: err}
}
