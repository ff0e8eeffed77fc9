package domain

// Effect classifies what the commit phase must do for a work node.
type Effect int

const (
	EffectNone Effect = iota
	EffectPlace
	EffectUpdate
	EffectDelete
)

func (e Effect) String() string {
	switch e {
	case EffectPlace:
		return "place"
	case EffectUpdate:
		return "update"
	case EffectDelete:
		return "delete"
	default:
		return "none"
	}
}

// EventPrefix marks a prop key as an event subscription (e.g. "onClick").
const EventPrefix = "on"
