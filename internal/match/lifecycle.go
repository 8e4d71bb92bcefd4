package match

var transitions = map[Status][]Status{
	StatusWaiting:       {StatusLive, StatusCancelled},
	StatusLive:          {StatusResultPending, StatusCompleted, StatusCancelled},
	StatusResultPending: {StatusCompleted, StatusLive},
}

// CanTransition reports whether from -> to is an edge of the match
// lifecycle. Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return !from.Terminal()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
