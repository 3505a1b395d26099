package manager

import (
	"strings"
	"time"
)

// State represents the lifecycle state of the model.
type State string

const (
	StateLoading State = "LOADING"
	StateReady   State = "READY"
	StateFailed  State = "FAILED"
)

// Backend selects where inference runs.
type Backend string

const (
	BackendAccelerated Backend = "accelerated"
	BackendGeneric     Backend = "generic"
)

// Precision is the numeric precision of the loaded weights.
type Precision string

const (
	PrecisionFloat16 Precision = "float16"
	PrecisionInt8    Precision = "int8"
)

// Profile is the backend/precision pair a model was loaded with.
type Profile struct {
	Backend   Backend
	Precision Precision
	// Device is the human label of the compute device, e.g. "cuda" or "cpu".
	Device string
}

var (
	AcceleratedProfile = Profile{Backend: BackendAccelerated, Precision: PrecisionFloat16, Device: "cuda"}
	GenericProfile     = Profile{Backend: BackendGeneric, Precision: PrecisionInt8, Device: "cpu"}
)

// String renders the profile the way it is logged at startup, e.g. "CUDA (FLOAT16)".
func (p Profile) String() string {
	if p.Device == "" {
		return ""
	}
	return strings.ToUpper(p.Device) + " (" + strings.ToUpper(string(p.Precision)) + ")"
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State    State
	Profile  Profile
	Model    string
	Err      string
	LoadedAt time.Time
}
