package types

import "github.com/juju/errors"

// Three error kinds cross package boundaries. Only HardwareError at
// startup is fatal to the process; the other two surface on the status
// channel and the session loop keeps going.

type HardwareError struct{ Err error }

func (e HardwareError) Error() string { return "hardware: " + e.Err.Error() }
func (e HardwareError) Unwrap() error { return e.Err }

type StorageError struct{ Err error }

func (e StorageError) Error() string { return "storage: " + e.Err.Error() }
func (e StorageError) Unwrap() error { return e.Err }

type CodeGenError struct{ Err error }

func (e CodeGenError) Error() string { return "codegen: " + e.Err.Error() }
func (e CodeGenError) Unwrap() error { return e.Err }

func IsHardwareError(err error) bool {
	_, ok := errors.Cause(err).(HardwareError)
	return ok
}

func IsStorageError(err error) bool {
	_, ok := errors.Cause(err).(StorageError)
	return ok
}

func IsCodeGenError(err error) bool {
	_, ok := errors.Cause(err).(CodeGenError)
	return ok
}
