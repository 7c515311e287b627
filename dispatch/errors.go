package dispatch

import "github.com/pkg/errors"

// ErrUnimplementedSpecialization, ErrIdConflict, ErrIdMissing, and
// ErrInvariantViolation are sentinel causes; wrap them with errors.Wrap
// (or match with errors.Is) rather than comparing error strings.
var (
	ErrUnimplementedSpecialization = errors.New("dispatch: no specialization registered for key")
	ErrIdConflict                  = errors.New("dispatch: id conflict")
	ErrIdMissing                   = errors.New("dispatch: id missing")
	ErrInvariantViolation          = errors.New("dispatch: invariant violation")
)

// UnimplementedSpecializationError names the exact tuple that had no
// matching registration, so callers can report the compiled specialization
// table alongside the failing job (spec §7 "user-visible behavior").
type UnimplementedSpecializationError struct {
	Key Key
}

func (e *UnimplementedSpecializationError) Error() string {
	return errors.Wrapf(ErrUnimplementedSpecialization, "%+v", e.Key).Error()
}

func (e *UnimplementedSpecializationError) Unwrap() error { return ErrUnimplementedSpecialization }

// IdConflictError names the duplicate/pre-existing external ids that
// caused add_points to fail.
type IdConflictError struct {
	IDs []uint64
}

func (e *IdConflictError) Error() string {
	return errors.Wrapf(ErrIdConflict, "ids %v", e.IDs).Error()
}

func (e *IdConflictError) Unwrap() error { return ErrIdConflict }

// IdMissingError names the external ids delete_points could not find.
type IdMissingError struct {
	IDs []uint64
}

func (e *IdMissingError) Error() string {
	return errors.Wrapf(ErrIdMissing, "ids %v", e.IDs).Error()
}

func (e *IdMissingError) Unwrap() error { return ErrIdMissing }
