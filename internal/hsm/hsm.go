package hsm

import "autolaunch/internal/model"

var dispatchTransitions = map[model.DispatchState]map[model.DispatchState]bool{
	model.DispatchUnvalidated: {
		model.DispatchValidated: true,
		model.DispatchRejected:  true,
	},
	model.DispatchValidated: {
		model.DispatchDispatched: true,
	},
	model.DispatchDispatched: {
		model.DispatchSucceeded:   true,
		model.DispatchFailed:      true,
		model.DispatchInterrupted: true,
	},
}

func CanTransitionDispatch(from model.DispatchState, to model.DispatchState) bool {
	if from == to {
		return true
	}
	return dispatchTransitions[from][to]
}

// Terminal reports whether no further dispatch transitions exist from state.
func Terminal(state model.DispatchState) bool {
	return len(dispatchTransitions[state]) == 0
}

func TerminalStateFor(status model.InvocationStatus) model.DispatchState {
	switch status {
	case model.InvocationSucceeded:
		return model.DispatchSucceeded
	case model.InvocationInterrupted:
		return model.DispatchInterrupted
	default:
		return model.DispatchFailed
	}
}
