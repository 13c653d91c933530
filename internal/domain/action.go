package domain

import "slices"

// Action identifies the kind of generation work a task performs.
type Action string

// Supported actions.
const (
	ActionGenerate Action = "generate"
	ActionUpscale  Action = "upscale"
	ActionVary     Action = "vary"
	ActionReset    Action = "reset"
	ActionDescribe Action = "describe"
	ActionBlend    Action = "blend"
)

// Actions lists every supported action in a stable order.
var Actions = []Action{
	ActionGenerate,
	ActionUpscale,
	ActionVary,
	ActionReset,
	ActionDescribe,
	ActionBlend,
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	return slices.Contains(Actions, a)
}
