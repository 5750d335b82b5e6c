package pipeline

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"microseg/internal/logger"
	"microseg/internal/opencv/safe"
)

// BatchRunner executes independent pipeline runs concurrently. Runs share
// the spec and parameter set read-only; every run owns its graph and buffer,
// so no mutable state crosses run boundaries.
type BatchRunner struct {
	spec    *Spec
	log     logger.Logger
	workers int
}

func NewBatchRunner(spec *Spec, log logger.Logger, workers int) *BatchRunner {
	if log == nil {
		log = logger.Nop{}
	}
	if workers < 1 {
		workers = 1
	}
	return &BatchRunner{spec: spec, log: log, workers: workers}
}

// Run processes every input and returns one buffer per input, in order. On
// the first failure remaining runs are cancelled, all completed buffers are
// discarded and the failure is returned; a batch never yields a partial
// result set.
func (r *BatchRunner) Run(ctx context.Context, inputs []*safe.Mat) ([]*Buffer, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	buffers := make([]*Buffer, len(inputs))

	for i, input := range inputs {
		group.Go(func() error {
			runID := uuid.New().String()

			r.log.Debug("batch", "run started", map[string]interface{}{
				"run_id": runID,
				"index":  i,
			})

			g := NewGraph(r.spec, r.log)
			buffer, err := g.Run(groupCtx, input)
			if err != nil {
				r.log.Error("batch", err, map[string]interface{}{
					"run_id": runID,
					"index":  i,
				})
				return err
			}

			buffers[i] = buffer

			r.log.Info("batch", "run completed", map[string]interface{}{
				"run_id":    runID,
				"index":     i,
				"artifacts": buffer.Len(),
			})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		for _, b := range buffers {
			if b != nil {
				b.Close()
			}
		}
		return nil, err
	}

	return buffers, nil
}
