// Package pipeline runs the scheduling passes over one problem: graph
// construction, ASAP, ALAP, slack and list scheduling. Each pass gets its own
// trace span and a debug log record.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joshharrison/hlsched/internal/cpm"
	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/input"
	"github.com/joshharrison/hlsched/internal/listsched"
	"github.com/joshharrison/hlsched/internal/oplib"
)

const tracerName = "github.com/joshharrison/hlsched/internal/pipeline"

// Span names, one per pass.
const (
	SpanBuild    = "graph.build"
	SpanASAP     = "cpm.asap"
	SpanALAP     = "cpm.alap"
	SpanSlack    = "cpm.slack"
	SpanSchedule = "listsched.run"
)

type runner struct {
	tracer trace.Tracer
	logger *zap.Logger
}

func newRunner(cfg Config) *runner {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &runner{tracer: tp.Tracer(tracerName), logger: logger}
}

// pass runs fn inside a span named name. It refuses to start once ctx is done.
func (r *runner) pass(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	r.logger.Debug("pass finished",
		zap.String("pass", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

// Build constructs the graph of p inside a graph.build span.
func Build(ctx context.Context, p *input.Problem, cfg Config) (*graph.DFG, error) {
	return newRunner(cfg).build(ctx, p)
}

func (r *runner) build(ctx context.Context, p *input.Problem) (*graph.DFG, error) {
	var g *graph.DFG
	err := r.pass(ctx, SpanBuild, func(ctx context.Context) error {
		var err error
		g, err = graph.Build(p.Total, p.Records)
		if err == nil {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int("nodes", g.Len()))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return g, nil
}

// Run builds the graph of p and runs every pass over it.
func Run(ctx context.Context, p *input.Problem, cfg Config) (*Result, error) {
	r := newRunner(cfg)
	g, err := r.build(ctx, p)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, g, p.Library, cfg)
}

// RunGraph runs the passes over an already built graph. Any attributes left
// from an earlier run are cleared first, so the same graph can be run again.
func RunGraph(ctx context.Context, g *graph.DFG, lib *oplib.Library, cfg Config) (*Result, error) {
	return newRunner(cfg).run(ctx, g, lib, cfg)
}

func (r *runner) run(ctx context.Context, g *graph.DFG, lib *oplib.Library, cfg Config) (*Result, error) {
	if lib == nil {
		lib = oplib.New(nil, nil)
	}
	if err := lib.Check(); err != nil {
		return nil, err
	}
	g.Reset()

	var asapFinish, alapFinish int
	err := r.pass(ctx, SpanASAP, func(ctx context.Context) error {
		var err error
		asapFinish, err = cpm.ASAP(g, lib)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("finish", asapFinish))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("asap: %w", err)
	}

	err = r.pass(ctx, SpanALAP, func(ctx context.Context) error {
		var err error
		alapFinish, err = cpm.ALAP(g, lib, asapFinish)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("alap: %w", err)
	}

	err = r.pass(ctx, SpanSlack, func(context.Context) error {
		return cpm.Slack(g)
	})
	if err != nil {
		return nil, fmt.Errorf("slack: %w", err)
	}

	result := &Result{
		CreatedAt:  time.Now(),
		TotalNodes: g.Len(),
		Analysis:   cpm.Summarize(g, asapFinish, alapFinish),
		Library:    lib,
		Config:     cfg,
	}
	r.logger.Info("analysis complete",
		zap.Int("nodes", g.Len()),
		zap.Int("asap_finish", asapFinish),
		zap.Int("critical", len(result.Analysis.CriticalPath)))

	if !cfg.SkipSchedule {
		err = r.pass(ctx, SpanSchedule, func(ctx context.Context) error {
			sched, err := listsched.Run(ctx, g, lib, listsched.Config{
				MaxCycles: cfg.MaxCycles,
				Logger:    r.logger.Named("listsched"),
			})
			if err != nil {
				return err
			}
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("total_time", sched.TotalTime),
				attribute.Int("cycles", sched.Cycles))
			result.Schedule = sched
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		r.logger.Info("schedule complete", zap.Int("total_time", result.Schedule.TotalTime))
	}

	result.Nodes = collectNodes(g, result.Schedule)
	return result, nil
}

func collectNodes(g *graph.DFG, sched *listsched.Schedule) []NodeResult {
	ids := g.IDs()
	nodes := make([]NodeResult, 0, len(ids))
	for _, id := range ids {
		op := g.Node(id)
		asap, _ := op.ASAP()
		alap, _ := op.ALAP()
		slack, _ := op.Slack()
		n := NodeResult{
			ID:         id,
			Operator:   op.Operator,
			Children:   append([]int(nil), op.Children...),
			Parents:    append([]int(nil), op.Parents...),
			ASAP:       asap,
			ALAP:       alap,
			Slack:      slack,
			IsCritical: slack == 0,
			Priority:   op.Priority,
		}
		if sched != nil {
			if e, ok := sched.Entry(id); ok {
				n.Schedule = &e
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Check builds the graph and validates the library against it without
// running any pass.
func Check(ctx context.Context, p *input.Problem, cfg Config) (*graph.DFG, error) {
	g, err := Build(ctx, p, cfg)
	if err != nil {
		return nil, err
	}
	lib := p.Library
	if lib == nil {
		lib = oplib.New(nil, nil)
	}
	if err := lib.Check(); err != nil {
		return nil, err
	}
	if err := lib.Validate(g.OperatorUsers()); err != nil {
		return nil, err
	}
	return g, nil
}
