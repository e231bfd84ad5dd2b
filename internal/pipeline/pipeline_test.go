package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/input"
	"github.com/joshharrison/hlsched/internal/listsched"
	"github.com/joshharrison/hlsched/internal/oplib"
	"github.com/joshharrison/hlsched/internal/testutil"
)

func problem(records []graph.Record, lib *oplib.Library) *input.Problem {
	return &input.Problem{Total: len(records), Records: records, Library: lib}
}

func TestRun_Mixed(t *testing.T) {
	res, err := Run(context.Background(), problem(testutil.Mixed()), Config{})
	require.NoError(t, err)

	require.Equal(t, 6, res.TotalNodes)
	require.Equal(t, 4, res.Analysis.ASAPFinish)
	require.Equal(t, []int{0, 1, 2, 4}, res.Analysis.CriticalPath)
	require.Equal(t, 6, res.Schedule.TotalTime)

	wantSlack := map[int]int{0: 0, 1: 0, 2: 0, 3: 1, 4: 0, 5: 3}
	for id, s := range wantSlack {
		n, ok := res.Node(id)
		require.True(t, ok)
		require.Equal(t, s, n.Slack, "slack of node %d", id)
		require.Equal(t, s == 0, n.IsCritical)
		require.NotNil(t, n.Schedule, "node %d unscheduled", id)
	}

	n3, _ := res.Node(3)
	require.Equal(t, 1, n3.ALAP)
	require.Equal(t, []int{4}, n3.Children)
	n4, _ := res.Node(4)
	require.Equal(t, []int{2, 3}, n4.Parents)
}

func TestRun_SkipSchedule(t *testing.T) {
	res, err := Run(context.Background(), problem(testutil.Chain()), Config{SkipSchedule: true})
	require.NoError(t, err)
	require.Nil(t, res.Schedule)
	require.Equal(t, 2, res.Analysis.ASAPFinish)
	for _, n := range res.Nodes {
		require.Nil(t, n.Schedule)
	}
}

func TestRun_SkipScheduleNeedsNoConstraints(t *testing.T) {
	records, _ := testutil.Chain()
	lib := oplib.New(oplib.Timing{"ADD": 1}, nil)

	_, err := Run(context.Background(), problem(records, lib), Config{SkipSchedule: true})
	require.NoError(t, err)

	_, err = Run(context.Background(), problem(records, lib), Config{})
	var uerr *oplib.UnknownOperatorError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, oplib.TableConstraints, uerr.Table)
}

func TestRun_Errors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		p := problem([]graph.Record{
			{ID: 0, Children: []int{1}, Operator: "ADD"},
			{ID: 1, Children: []int{0}, Operator: "ADD"},
		}, oplib.New(oplib.Timing{"ADD": 1}, oplib.Constraints{"ADD": 1}))
		_, err := Run(context.Background(), p, Config{})
		require.ErrorIs(t, err, graph.ErrMalformedGraph)
	})

	t.Run("unknown operator", func(t *testing.T) {
		records, _ := testutil.Chain()
		_, err := Run(context.Background(), problem(records, oplib.New(nil, nil)), Config{})
		require.ErrorIs(t, err, oplib.ErrUnknownOperator)
	})

	t.Run("stalled", func(t *testing.T) {
		records, _ := testutil.Chain()
		lib := oplib.New(oplib.Timing{"ADD": 1}, oplib.Constraints{"ADD": 0})
		_, err := Run(context.Background(), problem(records, lib), Config{})
		require.ErrorIs(t, err, listsched.ErrSchedulingStalled)
	})

	t.Run("invalid entry", func(t *testing.T) {
		records, _ := testutil.Chain()
		lib := oplib.New(oplib.Timing{"ADD": -1}, oplib.Constraints{"ADD": 1})
		_, err := Run(context.Background(), problem(records, lib), Config{})
		require.ErrorIs(t, err, oplib.ErrInvalidEntry)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, problem(testutil.Chain()), Config{})
		require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	})
}

func TestRun_DeadlineStopsLongSchedule(t *testing.T) {
	records := []graph.Record{
		{ID: 0, Operator: "MUL"},
		{ID: 1, Operator: "MUL"},
	}
	lib := oplib.New(oplib.Timing{"MUL": 20_000_000}, oplib.Constraints{"MUL": 1})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, problem(records, lib), Config{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "schedule")
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestRunGraph_Rerun(t *testing.T) {
	records, lib := testutil.Contended()
	g := testutil.BuildGraph(t, records)

	first, err := RunGraph(context.Background(), g, lib, Config{})
	require.NoError(t, err)
	second, err := RunGraph(context.Background(), g, lib, Config{})
	require.NoError(t, err)

	require.Equal(t, first.Nodes, second.Nodes)
	require.Equal(t, first.Schedule, second.Schedule)
	require.Equal(t, 3, second.Schedule.TotalTime)
}

func TestRun_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, err := Run(context.Background(), problem(testutil.Mixed()), Config{TracerProvider: tp})
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{SpanBuild, SpanASAP, SpanALAP, SpanSlack, SpanSchedule}, names)
}

func TestRun_FailedSpanRecordsError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	records, _ := testutil.Chain()
	_, err := Run(context.Background(), problem(records, oplib.New(nil, nil)), Config{TracerProvider: tp})
	require.Error(t, err)

	ended := sr.Ended()
	last := ended[len(ended)-1]
	require.Equal(t, SpanASAP, last.Name())
	require.Len(t, last.Events(), 1)
}

func TestRun_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	_, err := Run(context.Background(), problem(testutil.Contended()), Config{Logger: zap.New(core)})
	require.NoError(t, err)

	require.Equal(t, 5, logs.FilterMessage("pass finished").Len())
	require.Equal(t, 1, logs.FilterMessage("schedule complete").Len())
	blocked := logs.FilterMessage("blocked").All()
	require.NotEmpty(t, blocked)
	require.Equal(t, "listsched", blocked[0].LoggerName)
}

func TestCheck(t *testing.T) {
	g, err := Check(context.Background(), problem(testutil.Mixed()), Config{})
	require.NoError(t, err)
	require.Equal(t, 6, g.Len())
	_, ok := g.Node(0).ASAP()
	require.False(t, ok)

	records, _ := testutil.Mixed()
	lib := oplib.New(oplib.Timing{"MUL": 2, "ADD": 1, "SUB": 1}, oplib.Constraints{"MUL": 1, "ADD": 1})
	_, err = Check(context.Background(), problem(records, lib), Config{})
	var uerr *oplib.UnknownOperatorError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "SUB", uerr.Operator)
	require.Equal(t, 5, uerr.NodeID)
}
