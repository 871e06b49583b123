package script

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

type Report struct {
	Name     string
	Commands int
	Len      int64
	Height   int
	Elapsed  time.Duration
}

// Runner executes the scripts, each one against a brand new tree.
// Run is safe to be called concurrently, the trees are never shared.
type Runner struct {
	logger   xlog.XLogger
	stats    *observability.TreeStats
	treeOpts []tree.RBTreeOpt[int64]
	strict   bool
}

type RunnerOption func(*Runner)

// WithRunnerStrict validates the tree after every mutating command.
func WithRunnerStrict(strict bool) RunnerOption {
	return func(r *Runner) {
		r.strict = strict
	}
}

func WithRunnerTreeOptions(opts ...tree.RBTreeOpt[int64]) RunnerOption {
	return func(r *Runner) {
		r.treeOpts = append(r.treeOpts, opts...)
	}
}

func WithRunnerTreeStats(stats *observability.TreeStats) RunnerOption {
	return func(r *Runner) {
		r.stats = stats
	}
}

func NewRunner(logger xlog.XLogger, opts ...RunnerOption) *Runner {
	r := &Runner{logger: logger}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

func (r *Runner) newTree(name string) tree.RBTree[int64] {
	observer := tree.MultiObserver(
		xlog.NewRBTreeEventLogger(r.logger, zap.String("script", name)),
		r.stats.Observer(name),
	)
	opts := make([]tree.RBTreeOpt[int64], 0, len(r.treeOpts)+1)
	opts = append(opts, r.treeOpts...)
	if observer != nil {
		opts = append(opts, tree.WithRBTreeObserver[int64](observer))
	}
	return tree.NewRBTree[int64](opts...)
}

// RunScript parses the script and runs it.
func (r *Runner) RunScript(ctx context.Context, name string, rd io.Reader, w io.Writer) (Report, error) {
	cmds, err := Parse(rd)
	if err != nil {
		return Report{Name: name}, infra.WrapErrorStack(err, "parse script "+name)
	}
	return r.Run(ctx, name, cmds, w)
}

// Run stops at the first failed command or on the context done.
func (r *Runner) Run(ctx context.Context, name string, cmds []Command, w io.Writer) (Report, error) {
	start := time.Now()
	t := r.newTree(name)
	defer func() {
		r.stats.Released(name, t.Len())
		t.Release()
	}()

	report := Report{Name: name}
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return report, infra.WrapErrorStack(err, "script "+name+" interrupted")
		}
		if err := r.exec(name, t, cmd, w); err != nil {
			return report, infra.WrapErrorStack(err, "script "+name+" line "+strconv.Itoa(cmd.Line)+" "+string(cmd.Op))
		}
		if r.strict && cmd.Op.Mutating() {
			if err := tree.Validate[int64](t); err != nil {
				return report, infra.WrapErrorStack(err, "script "+name+" line "+strconv.Itoa(cmd.Line)+" invalid tree")
			}
		}
		report.Commands++
	}
	report.Len, report.Height, report.Elapsed = t.Len(), t.Height(), time.Since(start)
	if r.logger != nil {
		r.logger.Info("script done",
			zap.String("script", name),
			zap.Int("commands", report.Commands),
			zap.Int64("len", report.Len),
			zap.Int("height", report.Height),
			zap.Duration("elapsed", report.Elapsed),
		)
	}
	return report, nil
}

func (r *Runner) exec(name string, t tree.RBTree[int64], cmd Command, w io.Writer) error {
	switch cmd.Op {
	case OpInsert:
		for _, key := range cmd.Keys {
			t.Insert(key)
		}
	case OpDelete:
		for _, key := range cmd.Keys {
			t.Delete(key)
		}
	case OpSearch:
		for _, key := range cmd.Keys {
			if _, err := fmt.Fprintf(w, "search %d %t\n", key, t.Search(key)); err != nil {
				return err
			}
		}
	case OpInorder:
		_, err := fmt.Fprintf(w, "inorder %v\n", t.Inorder())
		return err
	case OpMin:
		return writeOptionalKey(w, cmd.Op, t.Min)
	case OpMax:
		return writeOptionalKey(w, cmd.Op, t.Max)
	case OpDeleteMin:
		return writeOptionalKey(w, cmd.Op, t.DeleteMin)
	case OpLen:
		_, err := fmt.Fprintf(w, "len %d\n", t.Len())
		return err
	case OpHeight:
		_, err := fmt.Fprintf(w, "height %d\n", t.Height())
		return err
	case OpValidate:
		if err := tree.Validate[int64](t); err != nil {
			return err
		}
		_, err := io.WriteString(w, "validate ok\n")
		return err
	case OpPrint:
		_, err := io.WriteString(w, Sprint[int64](t))
		return err
	case OpRelease:
		r.stats.Released(name, t.Len())
		t.Release()
	default:
		return infra.NewErrorStack("unknown command " + string(cmd.Op))
	}
	return nil
}

func writeOptionalKey(w io.Writer, op Op, fn func() (int64, bool)) error {
	key, ok := fn()
	if !ok {
		_, err := fmt.Fprintf(w, "%s none\n", op)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %d\n", op, key)
	return err
}

// Sprint renders the tree sideways, the right subtree on top and one
// indent level per depth. Each key is followed by its color initial.
func Sprint[K any](t tree.RBTree[K]) string {
	builder := &strings.Builder{}
	var walk func(node tree.RBNode[K], depth int)
	walk = func(node tree.RBNode[K], depth int) {
		if node == nil {
			return
		}
		walk(node.Right(), depth+1)
		builder.WriteString(strings.Repeat("    ", depth))
		builder.WriteString(fmt.Sprint(node.Key()))
		builder.WriteString("(")
		builder.WriteString(node.Color().String()[:1])
		builder.WriteString(")\n")
		walk(node.Left(), depth+1)
	}
	walk(t.Root(), 0)
	return builder.String()
}
