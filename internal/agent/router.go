package agent

import (
	"fmt"

	"github.com/antoniostano/maistro/internal/protocol"
)

// Step names a state of the turn loop.
type Step string

const (
	StepRespond            Step = "respond"
	StepUpdateProfile      Step = "update_profile"
	StepUpdateTodos        Step = "update_todos"
	StepUpdateInstructions Step = "update_instructions"
	StepTerminate          Step = "terminate"
)

// Routed is one branch selected by the router, carrying every update request
// that triggered it. Multiple requests with the same discriminant collapse
// into a single branch that acknowledges each of them.
type Routed struct {
	Step  Step
	Calls []protocol.ToolCall
}

// Route inspects the update requests of the latest assistant message and
// returns the branches to run next, in canonical order (profile, todos,
// instructions). Zero requests routes to terminate. An unrecognized
// discriminant fails the turn.
func Route(msg protocol.Message) ([]Routed, error) {
	if len(msg.ToolCalls) == 0 {
		return []Routed{{Step: StepTerminate}}, nil
	}

	buckets := make(map[Step][]protocol.ToolCall, 3)
	for _, call := range msg.ToolCalls {
		ut, err := call.UpdateType()
		if err != nil {
			return nil, fmt.Errorf("%w: call %s: %v", ErrInvalidUpdateType, call.ID, err)
		}
		step := stepForUpdateType(ut)
		buckets[step] = append(buckets[step], call)
	}

	out := make([]Routed, 0, len(buckets))
	for _, step := range []Step{StepUpdateProfile, StepUpdateTodos, StepUpdateInstructions} {
		if calls, ok := buckets[step]; ok {
			out = append(out, Routed{Step: step, Calls: calls})
		}
	}
	return out, nil
}

func stepForUpdateType(ut protocol.UpdateType) Step {
	switch ut {
	case protocol.UpdateUser:
		return StepUpdateProfile
	case protocol.UpdateTodo:
		return StepUpdateTodos
	case protocol.UpdateInstructions:
		return StepUpdateInstructions
	}
	// ParseUpdateType already rejected anything else.
	return StepTerminate
}
