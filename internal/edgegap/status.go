// internal/edgegap/status.go
package edgegap

import (
	"encoding/json"
	"fmt"
)

// Status is a deployment lifecycle state as reported by the provider.
type Status int

const (
	StatusUnspecified Status = iota
	StatusInitializing
	StatusSeeking
	StatusSeeked
	StatusScanning
	StatusDeploying
	StatusReady
	StatusTerminated
	StatusError
)

// statusNames is the single source of truth for the wire mapping. The
// reverse table is derived from it in init so the two can never drift, and
// TestStatusMappingTotal asserts every defined status appears here.
var statusNames = map[Status]string{
	StatusUnspecified:  "Unspecified",
	StatusInitializing: "Initializing",
	StatusSeeking:      "Seeking",
	StatusSeeked:       "Seeked",
	StatusScanning:     "Scanning",
	StatusDeploying:    "Deploying",
	StatusReady:        "Ready",
	StatusTerminated:   "Terminated",
	StatusError:        "Error",
}

var statusValues = make(map[string]Status, len(statusNames))

func init() {
	for status, name := range statusNames {
		statusValues[name] = status
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the deployment can no longer become ready.
func (s Status) Terminal() bool {
	return s == StatusTerminated || s == StatusError
}

// ParseStatus maps a wire string onto a Status. Unknown strings are an
// error, never a silent default.
func ParseStatus(name string) (Status, error) {
	if status, ok := statusValues[name]; ok {
		return status, nil
	}
	return StatusUnspecified, fmt.Errorf("unknown deployment status %q", name)
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown deployment status %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
