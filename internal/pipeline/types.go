package pipeline

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joshharrison/hlsched/internal/cpm"
	"github.com/joshharrison/hlsched/internal/listsched"
	"github.com/joshharrison/hlsched/internal/oplib"
)

// Config holds configuration for a pipeline run.
type Config struct {
	MaxCycles    int  `json:"max_cycles"`
	SkipSchedule bool `json:"skip_schedule"` // stop after slack

	Logger         *zap.Logger          `json:"-"`
	TracerProvider trace.TracerProvider `json:"-"`
}

// Result is the complete outcome of a run.
type Result struct {
	CreatedAt  time.Time           `json:"created_at"`
	TotalNodes int                 `json:"total_nodes"`
	Analysis   *cpm.Result         `json:"analysis"`
	Schedule   *listsched.Schedule `json:"schedule,omitempty"`
	Nodes      []NodeResult        `json:"nodes"` // ascending id
	Library    *oplib.Library      `json:"library"`
	Config     Config              `json:"config"`
}

// NodeResult is the per-node view of a run.
type NodeResult struct {
	ID         int              `json:"id"`
	Operator   string           `json:"op"`
	Children   []int            `json:"children"`
	Parents    []int            `json:"parents"`
	ASAP       int              `json:"asap"`
	ALAP       int              `json:"alap"`
	Slack      int              `json:"slack"`
	IsCritical bool             `json:"is_critical"`
	Priority   int              `json:"priority"` // after any decay
	Schedule   *listsched.Entry `json:"schedule,omitempty"`
}

// Node returns the result for the given id.
func (r *Result) Node(id int) (NodeResult, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeResult{}, false
}
