package listsched

import "go.uber.org/zap"

// Config tunes a scheduling run.
type Config struct {
	// MaxCycles bounds the simulation. Zero means the sum of all operation
	// durations plus one, which no valid list schedule can exceed.
	MaxCycles int
	// Logger receives debug records for dispatch and priority decay. Nil
	// disables logging.
	Logger *zap.Logger
}

// Entry is one dispatched operation.
type Entry struct {
	ID         int    `json:"id"`
	Operator   string `json:"op"`
	ReadyTime  int    `json:"ready_time"`
	StartTime  int    `json:"start_time"`
	FinishTime int    `json:"finish_time"` // inclusive
	Unit       int    `json:"unit"`        // functional unit index within the operator
	Priority   int    `json:"priority"`    // priority at dispatch
}

// Schedule is the result of a list scheduling run.
type Schedule struct {
	Entries   []Entry        `json:"entries"` // dispatch order
	TotalTime int            `json:"total_time"`
	Cycles    int            `json:"cycles"` // simulated cycles
	Units     map[string]int `json:"units"`
}

// At returns the entries that start in the given cycle, in dispatch order.
func (s *Schedule) At(cycle int) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.StartTime == cycle {
			out = append(out, e)
		}
	}
	return out
}

// InFlight counts the operations of op holding a unit during cycle.
func (s *Schedule) InFlight(cycle int, op string) int {
	n := 0
	for _, e := range s.Entries {
		if e.Operator == op && e.StartTime <= cycle && cycle <= e.FinishTime {
			n++
		}
	}
	return n
}

// Entry returns the entry for the given operation id.
func (s *Schedule) Entry(id int) (Entry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Utilization returns, per operator, the fraction of unit-cycles spent busy
// over the length of the schedule.
func (s *Schedule) Utilization() map[string]float64 {
	busy := make(map[string]int)
	for _, e := range s.Entries {
		busy[e.Operator] += e.FinishTime - e.StartTime + 1
	}
	out := make(map[string]float64, len(busy))
	for op, cycles := range busy {
		units := s.Units[op]
		if units <= 0 {
			continue
		}
		out[op] = float64(cycles) / float64(units*(s.TotalTime+1))
	}
	return out
}
