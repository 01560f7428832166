package game

// ActionKind discriminates queued player actions.
type ActionKind string

const (
	ActionInput   ActionKind = "input"
	ActionMove    ActionKind = "move"
	ActionShoot   ActionKind = "shoot"
	ActionForfeit ActionKind = "forfeit"
)

// Action is one queued player intent, applied by the reducer in receive
// order at the next tick.
type Action struct {
	Kind     ActionKind
	PlayerID string
	Held     InputState // ActionInput
	Dir      int        // ActionMove: -1 left, +1 right
}
