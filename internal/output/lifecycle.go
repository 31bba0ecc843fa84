package output

import (
	"fmt"

	"contentops/internal/services"
)

// edges lists every legal forward transition. Regeneration out of a terminal
// state is not an edge; it goes through Reentry.
var edges = map[Status][]Status{
	StatusPending:     {StatusProcessing},
	StatusProcessing:  {StatusScriptReady, StatusCompleted, StatusFailed},
	StatusScriptReady: {StatusProcessing},
}

// CanTransition returns nil when kind may move from one status to another,
// otherwise an ErrInvalidState error.
func CanTransition(kind Kind, from, to Status) error {
	if (from == StatusScriptReady || to == StatusScriptReady) && !kind.ScriptFirst() {
		return invalid(kind, from, to)
	}
	for _, next := range edges[from] {
		if next == to {
			return nil
		}
	}
	return invalid(kind, from, to)
}

// Reentry validates the explicit regenerate re-entry into PROCESSING, which is
// only allowed from a terminal state.
func Reentry(kind Kind, from Status) error {
	if from.IsTerminal() {
		return nil
	}
	return services.Wrap(services.ErrInvalidState, "output", "regenerate",
		fmt.Sprintf("%s output is %s; only COMPLETED or FAILED outputs can be regenerated", kind, from), nil)
}

// CanApprove validates the editorial approval gate.
func CanApprove(status Status) error {
	if status == StatusCompleted {
		return nil
	}
	return services.Wrap(services.ErrInvalidState, "output", "approve",
		fmt.Sprintf("output is %s; only COMPLETED outputs can be approved", status), nil)
}

func invalid(kind Kind, from, to Status) error {
	return services.Wrap(services.ErrInvalidState, "output", "transition",
		fmt.Sprintf("%s output cannot move from %s to %s", kind, from, to), nil)
}
