package models

// Location is where a scheduled event takes place. Exactly one variant is
// held by an event; a nil Location means the type is unknown.
type Location interface {
	Type() Type
	// String is the channel id for channel-hosted events and the free-form
	// place for external ones.
	String() string
	isLocation()
}

type StageLocation struct {
	Channel *StageChannel
}

func (StageLocation) Type() Type { return TypeStageInstance }
func (StageLocation) isLocation() {}

func (l StageLocation) String() string {
	if l.Channel == nil {
		return ""
	}
	return l.Channel.ID.String()
}

type VoiceLocation struct {
	Channel *VoiceChannel
}

func (VoiceLocation) Type() Type { return TypeVoice }
func (VoiceLocation) isLocation() {}

func (l VoiceLocation) String() string {
	if l.Channel == nil {
		return ""
	}
	return l.Channel.ID.String()
}

type ExternalLocation struct {
	Place string
}

func (ExternalLocation) Type() Type       { return TypeExternal }
func (l ExternalLocation) String() string { return l.Place }
func (ExternalLocation) isLocation()      {}

// ResolveLocation picks a single location out of independently nullable
// candidates, preferring stage, then voice, then external.
func ResolveLocation(stage *StageChannel, voice *VoiceChannel, external *string) Location {
	switch {
	case stage != nil:
		return StageLocation{Channel: stage}
	case voice != nil:
		return VoiceLocation{Channel: voice}
	case external != nil:
		return ExternalLocation{Place: *external}
	default:
		return nil
	}
}

func locationEqual(a, b Location) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && a.String() == b.String()
}
