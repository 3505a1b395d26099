package manager

import "errors"

// ErrAlreadyLoaded is returned when Load is called more than once.
var ErrAlreadyLoaded = errors.New("model load already attempted")

// notReadyError is returned for transcription requests before the model is READY.
type notReadyError struct{}

func (notReadyError) Error() string { return "Model not loaded" }

// ErrNotReady is the shared not-ready error value.
var ErrNotReady error = notReadyError{}

// IsNotReady reports whether err indicates the model is not loaded.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// notFoundError signals that the requested audio file does not exist.
type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "Audio file not found: " + e.path }

func ErrNotFound(path string) error { return notFoundError{path: path} }

// IsNotFound reports whether err indicates a missing audio file.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// engineFailureError wraps any failure raised by the engine during a job.
type engineFailureError struct{ err error }

func (e engineFailureError) Error() string { return "Transcription failed: " + e.err.Error() }
func (e engineFailureError) Unwrap() error { return e.err }

func ErrEngineFailure(err error) error { return engineFailureError{err: err} }

// IsEngineFailure reports whether err came from the engine.
func IsEngineFailure(err error) bool {
	var e engineFailureError
	return errors.As(err, &e)
}

// modelLoadFailureError is fatal for the server process.
type modelLoadFailureError struct{ err error }

func (e modelLoadFailureError) Error() string { return "model load failed: " + e.err.Error() }
func (e modelLoadFailureError) Unwrap() error { return e.err }

// IsModelLoadFailure reports whether err is an unrecoverable load failure.
func IsModelLoadFailure(err error) bool {
	var e modelLoadFailureError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., whisper.cpp)
// that was not compiled in.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
