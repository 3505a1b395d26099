// Package manager owns the single resident speech model. It is structured
// into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Profile and Snapshot.
//   - errors.go: error types and helpers (IsNotReady, IsNotFound, ...).
//   - accelerator.go: accelerator detection used to pick the load profile.
//   - load.go: Load and the accelerated-then-generic fallback.
//   - transcribe.go: Transcribe entry point.
//   - status_report.go: Snapshot/Status reporting helpers.
//
// Build tags and runtimes:
//
//   - whisper.cpp (standard):
//     Uses the whisper.cpp Go bindings. Enabled with `-tags=whisper`.
//     Files: adapter_whisper.go.
//     A no-CGO stub exists when the tag is not set: adapter_whisper_stub.go.
//
// Transcribe is not safe to call concurrently with itself; callers serialize
// jobs (see internal/queue).
package manager
