package resource

import "fmt"

// StateTag classifies observed remote state.
type StateTag string

const (
	StateAbsent  StateTag = "absent"
	StatePresent StateTag = "present"
	StateUnknown StateTag = "unknown"
)

// RemoteState is the result of probing a resource on the remote system.
//
// Unknown must never be read as Absent: it means the probe could not decide.
type RemoteState struct {
	Tag      StateTag `json:"tag"`
	Matching bool     `json:"matching,omitempty"`
	Details  string   `json:"details,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Absent reports a resource that does not exist remotely.
func Absent() RemoteState {
	return RemoteState{Tag: StateAbsent}
}

// Present reports a resource that exists remotely.
func Present(matching bool, details string) RemoteState {
	return RemoteState{Tag: StatePresent, Matching: matching, Details: details}
}

// Unknown reports that the remote state could not be determined.
func Unknown(reason string) RemoteState {
	return RemoteState{Tag: StateUnknown, Reason: reason}
}

func (s RemoteState) IsAbsent() bool  { return s.Tag == StateAbsent }
func (s RemoteState) IsPresent() bool { return s.Tag == StatePresent }

// IsUnknown reports Unknown, treating the zero value as Unknown too.
func (s RemoteState) IsUnknown() bool {
	return s.Tag != StateAbsent && s.Tag != StatePresent
}

// IsConverged reports Present with matching configuration.
func (s RemoteState) IsConverged() bool {
	return s.Tag == StatePresent && s.Matching
}

func (s RemoteState) String() string {
	switch {
	case s.IsAbsent():
		return "absent"
	case s.IsPresent() && s.Matching:
		return "present (matching)"
	case s.IsPresent():
		if s.Details != "" {
			return fmt.Sprintf("present (conflicting: %s)", s.Details)
		}
		return "present (conflicting)"
	default:
		if s.Reason != "" {
			return fmt.Sprintf("unknown (%s)", s.Reason)
		}
		return "unknown"
	}
}
