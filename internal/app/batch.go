package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/internal/script"
	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/xlog"
)

// Batch runs the scripts on the worker pool, one tree per script.
type Batch struct {
	pool    *ants.Pool
	runner  *script.Runner
	logger  xlog.XLogger
	scripts []string
	out     io.Writer
}

func newBatch(params Params, pool *ants.Pool, runner *script.Runner, logger xlog.XLogger) *Batch {
	out := params.Out
	if out == nil {
		out = os.Stdout
	}
	return &Batch{
		pool:    pool,
		runner:  runner,
		logger:  logger,
		scripts: params.Scripts,
		out:     out,
	}
}

type scriptResult struct {
	out    bytes.Buffer
	report script.Report
	err    error
}

// Run waits for all the scripts and writes their outputs in the given
// order. A header line precedes each output when there are several.
// The errors of the failed scripts are combined.
func (b *Batch) Run(ctx context.Context) error {
	if len(b.scripts) == 0 {
		return infra.NewErrorStack("no script to run")
	}
	results := make([]*scriptResult, len(b.scripts))
	var wg sync.WaitGroup
	for i, path := range b.scripts {
		res := &scriptResult{}
		results[i] = res
		wg.Add(1)
		if err := b.pool.Submit(func() {
			defer wg.Done()
			res.report, res.err = b.runOne(ctx, path, &res.out)
		}); err != nil {
			wg.Done()
			res.err = infra.WrapErrorStack(err, "submit script "+path)
		}
	}
	wg.Wait()

	var err error
	for i, res := range results {
		if len(b.scripts) > 1 {
			if _, werr := fmt.Fprintf(b.out, "== %s\n", b.scripts[i]); werr != nil {
				return multierr.Append(err, werr)
			}
		}
		if _, werr := res.out.WriteTo(b.out); werr != nil {
			return multierr.Append(err, werr)
		}
		if res.err != nil {
			b.logger.ErrorStack(res.err, "script failed", zap.String("script", b.scripts[i]))
			err = multierr.Append(err, res.err)
		}
	}
	return err
}

func (b *Batch) runOne(ctx context.Context, path string, w io.Writer) (report script.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = infra.NewErrorStack(fmt.Sprintf("script %s panic: %v", path, r))
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return script.Report{Name: path}, infra.WrapErrorStack(err, "open script")
	}
	defer func() {
		_ = f.Close()
	}()
	return b.runner.RunScript(ctx, path, f, w)
}
