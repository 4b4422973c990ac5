package review

// Transition is the closed set of per-item review operations. Handlers build
// one of the concrete types below and hand it to Session.Apply; the type
// switch there is the single dispatch point for all state mutation.
type Transition interface {
	transition()
}

// Accept marks an item accepted and moves the selection to it.
type Accept struct {
	Index int
}

// Reject marks an item rejected. Selection is left where it was.
type Reject struct {
	Index int
}

// Edit replaces an item's content. An edit is an implicit accept.
type Edit struct {
	Index int
	Front string
	Back  string
}

// Select moves the selection without touching review status. Index -1 clears it.
type Select struct {
	Index int
}

func (Accept) transition() {}
func (Reject) transition() {}
func (Edit) transition()   {}
func (Select) transition() {}
