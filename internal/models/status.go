package models

// Status is the lifecycle state reported by the platform for a scheduled event.
type Status int

const (
	StatusUnknown   Status = -1
	StatusScheduled Status = 1
	StatusActive    Status = 2
	StatusCompleted Status = 3
	StatusCanceled  Status = 4
)

var statuses = [...]Status{
	StatusUnknown,
	StatusScheduled,
	StatusActive,
	StatusCompleted,
	StatusCanceled,
}

func (s Status) Key() int {
	return int(s)
}

// StatusFromKey never fails; keys the platform adds later map to StatusUnknown.
func StatusFromKey(key int) Status {
	for _, s := range statuses {
		if s.Key() == key {
			return s
		}
	}
	return StatusUnknown
}

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "SCHEDULED"
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransitionTo reports whether the platform accepts moving from s to next.
// Only the manager consults this; cached events store whatever the gateway sends.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusActive || next == StatusCanceled
	case StatusActive:
		return next == StatusCompleted || next == StatusCanceled
	default:
		return false
	}
}

// Type is the kind of location a scheduled event takes place at.
type Type int

const (
	TypeUnknown       Type = -1
	TypeStageInstance Type = 1
	TypeVoice         Type = 2
	TypeExternal      Type = 3
)

var types = [...]Type{
	TypeUnknown,
	TypeStageInstance,
	TypeVoice,
	TypeExternal,
}

func (t Type) Key() int {
	return int(t)
}

func TypeFromKey(key int) Type {
	for _, t := range types {
		if t.Key() == key {
			return t
		}
	}
	return TypeUnknown
}

func (t Type) String() string {
	switch t {
	case TypeStageInstance:
		return "STAGE_INSTANCE"
	case TypeVoice:
		return "VOICE"
	case TypeExternal:
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}
