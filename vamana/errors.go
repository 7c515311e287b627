package vamana

import "github.com/pkg/errors"

var (
	// ErrInvariantViolation is raised when a structural invariant (e.g.
	// search_window_size <= search_buffer_capacity, or a schedule that
	// shrinks buffer_config across iterations) would be violated.
	ErrInvariantViolation = errors.New("vamana: invariant violation")
	// ErrCalibrationContext is raised when calibrate is invoked in a
	// context that does not support the requested sweep (spec §4.5.4).
	ErrCalibrationContext = errors.New("vamana: calibration invoked in wrong context")
)
