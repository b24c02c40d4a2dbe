package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGeometry marks a raw observation that cannot become a point. It is
	// an expected outcome during normalization, not a run failure.
	ErrNoGeometry = errors.New("observation has no usable geometry")

	// ErrTotalUnavailable means the initial count request failed, so no
	// pagination plan can be formed.
	ErrTotalUnavailable = errors.New("total result count unavailable")

	// ErrUnknownCRS means a geometry collection has a missing or unparseable CRS.
	ErrUnknownCRS = errors.New("unknown coordinate reference system")

	// ErrUnsupportedCRS means there is no transform between two reference systems.
	ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

	// ErrCRSMismatch means a spatial comparison was attempted across two
	// different reference systems.
	ErrCRSMismatch = errors.New("coordinate reference systems differ")
)

// Pipeline stage names used in StageError.
const (
	StageCollect    = "collect"
	StageBoundaries = "boundaries"
	StageReconcile  = "reconcile"
	StageJoin       = "join"
	StageExport     = "export"
	StageMap        = "map"
)

// StageError is a fatal failure attributed to one pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StatusError is returned by remote sources for non-success HTTP responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}
