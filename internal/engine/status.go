package engine

// Status is the observability surface published to presentation layers at
// defined checkpoints (per-entity completion, pass start/end). The engine
// only writes it; observers must treat it as read-only.
type Status struct {
	InProgress bool
	// Stage is a short human-readable label, e.g. "syncing projects".
	Stage string
	// Progress runs from 0.0 to 1.0 across the entity sequence of the
	// active pass.
	Progress float64
	HasError bool
	// LastError is the text of the most recent failure, kept until the
	// next successful pass.
	LastError string
}

func (e *Engine) publish(s Status) {
	e.statusMu.Lock()
	e.status = s
	fn := e.onStatus
	e.statusMu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Status returns the most recently published sync state.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}
