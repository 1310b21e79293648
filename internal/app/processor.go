package app

import (
	"context"
	"path/filepath"

	"github.com/okian/facewin/internal/adapters/mq/queue"
	"github.com/okian/facewin/internal/adapters/mq/worker"
	"github.com/okian/facewin/internal/adapters/tabular"
	"github.com/okian/facewin/internal/domain/derive"
)

// deriveProcessor adapts derive.Deriver to worker.Processor.
type deriveProcessor struct {
	deriver *derive.Deriver
}

func (d deriveProcessor) Process(ctx context.Context, j queue.Job) worker.Result {
	res := worker.Result{Job: j}

	t, err := tabular.ReadFile(j.Path)
	if err != nil {
		res.Err = err
		return res
	}

	res.Recording, res.Report, res.Err = d.deriver.Derive(ctx, j.Key, filepath.Base(j.Path), t)
	return res
}
