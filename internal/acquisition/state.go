package acquisition

import "fmt"

// State is a step in the per-item acquisition machine.
type State string

const (
	StateIdle             State = "idle"
	StateSearching        State = "searching"
	StateFound            State = "found"
	StateNotFound         State = "not_found"
	StateExportConfigured State = "export_configured"
	StateDownloading      State = "downloading"
	StateDownloaded       State = "downloaded"
	StateTimedOut         State = "timed_out"
	StateRenamed          State = "renamed"
)

var transitions = map[State][]State{
	StateIdle:             {StateSearching},
	StateSearching:        {StateFound, StateNotFound},
	StateFound:            {StateExportConfigured},
	StateExportConfigured: {StateDownloading},
	StateDownloading:      {StateDownloaded, StateTimedOut},
	StateDownloaded:       {StateRenamed},
}

// machine tracks one item's progress and rejects illegal moves.
type machine struct {
	state State
	trace func(from, to State)
}

func newMachine(trace func(from, to State)) *machine {
	return &machine{state: StateIdle, trace: trace}
}

func (m *machine) to(next State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			if m.trace != nil {
				m.trace(m.state, next)
			}
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid acquisition transition %s -> %s", m.state, next)
}
