// File: internal/artifacts/fs.go
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/perception"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FSSink writes run artifacts under a timestamped directory:
//
//	<base>/run_20060102_150405_<id>/
//	    step_0_state_raw.png
//	    step_0_state_parsed.png
//	    step_0_action_highlight.png
//	    steps.jsonl
//	    final_state.png
//	    report.json
type FSSink struct {
	base   string
	logger *zap.Logger

	mu     sync.Mutex
	runDir string
	log    *os.File
}

var _ Sink = (*FSSink)(nil)

// NewFSSink creates a sink rooted at base. The per-run directory is created
// lazily in BeginRun.
func NewFSSink(base string, logger *zap.Logger) *FSSink {
	return &FSSink{
		base:   base,
		logger: logger.Named("artifacts.fs"),
	}
}

// BeginRun creates the run directory and opens the step log.
func (s *FSSink) BeginRun(ctx context.Context, runID, goal string) error {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(s.base, fmt.Sprintf("run_%s_%s", time.Now().Format("20060102_150405"), short))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	log, err := os.OpenFile(filepath.Join(dir, "steps.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open step log: %w", err)
	}

	s.mu.Lock()
	s.runDir = dir
	s.log = log
	s.mu.Unlock()

	s.logger.Info("Run artifact directory created",
		zap.String("dir", dir), zap.String("goal", goal))
	return nil
}

// RecordStep persists the step's screenshots concurrently and appends one
// JSONL line describing the step.
func (s *FSSink) RecordStep(ctx context.Context, rec *StepRecord) error {
	s.mu.Lock()
	dir, log := s.runDir, s.log
	s.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("RecordStep called before BeginRun")
	}

	g, _ := errgroup.WithContext(ctx)
	if rec.Frame != nil && rec.Frame.Image != nil {
		frame := rec.Frame
		g.Go(func() error {
			return imaging.Save(frame.Image, s.stepFile(dir, rec.Step, "state_raw"))
		})
		g.Go(func() error {
			annotated := AnnotateElements(frame.Image, frame.State.Elements)
			return imaging.Save(annotated, s.stepFile(dir, rec.Step, "state_parsed"))
		})
		if target := stepTarget(rec, &frame.State); target != nil {
			g.Go(func() error {
				highlighted := HighlightTarget(frame.Image, target.Bounds)
				return imaging.Save(highlighted, s.stepFile(dir, rec.Step, "action_highlight"))
			})
		}
	}
	g.Go(func() error {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal step record: %w", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, err := log.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to append step log: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to persist step %d artifacts: %w", rec.Step, err)
	}
	return nil
}

// FinishRun writes the final screenshot and the run report, then closes the
// step log.
func (s *FSSink) FinishRun(ctx context.Context, report *schemas.RunReport, final *perception.Frame) error {
	s.mu.Lock()
	dir, log := s.runDir, s.log
	s.log = nil
	s.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("FinishRun called before BeginRun")
	}
	if log != nil {
		defer log.Close()
	}

	if final != nil && final.Image != nil {
		if err := imaging.Save(final.Image, filepath.Join(dir, "final_state.png")); err != nil {
			return fmt.Errorf("failed to save final screenshot: %w", err)
		}
	}

	blob, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), blob, 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	s.logger.Info("Run artifacts finalized",
		zap.String("dir", dir),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("steps", report.Steps))
	return nil
}

// RunDir exposes the active run directory, mainly for the CLI to print.
func (s *FSSink) RunDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runDir
}

func (s *FSSink) stepFile(dir string, step int, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("step_%d_%s.png", step, kind))
}

// stepTarget resolves the element the step acted on, if any.
func stepTarget(rec *StepRecord, state *schemas.ScreenState) *schemas.UIElement {
	if rec.Result != nil && rec.Result.Element != nil {
		return rec.Result.Element
	}
	if rec.Plan != nil && rec.Plan.ElementID != nil {
		return state.Element(*rec.Plan.ElementID)
	}
	return nil
}
