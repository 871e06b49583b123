package observability

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xtree/lib/tree"
)

const treeStatsName = "xtree/rbtree"

// TreeStats counts the rbtree events and tracks the live keys.
type TreeStats struct {
	events metric.Int64Counter
	size   metric.Int64UpDownCounter
}

func NewTreeStats(mp metric.MeterProvider) (*TreeStats, error) {
	meter := mp.Meter(treeStatsName)
	events, err := meter.Int64Counter(
		"xtree.rbtree.events",
		metric.WithDescription(`The rbtree insert, remove, rotation and fixup steps.`),
	)
	if err != nil {
		return nil, err
	}
	size, err := meter.Int64UpDownCounter(
		"xtree.rbtree.size",
		metric.WithDescription(`The keys held by the live rbtrees.`),
	)
	if err != nil {
		return nil, err
	}
	return &TreeStats{events: events, size: size}, nil
}

// Observer records the events of one tree, labelled by the script.
// It is called on the mutating goroutine only, so it never reads the tree.
func (stats *TreeStats) Observer(script string) tree.RBTreeObserver {
	if stats == nil {
		return nil
	}
	scriptAttr := attribute.String("script", script)
	sizeOpt := metric.WithAttributeSet(attribute.NewSet(scriptAttr))
	eventOpts := lo.Map(tree.Events(), func(ev tree.RBEvent, _ int) metric.AddOption {
		return metric.WithAttributeSet(attribute.NewSet(scriptAttr, attribute.String("event", ev.String())))
	})
	ctx := context.Background()
	return func(ev tree.RBEvent) {
		if int(ev) >= len(eventOpts) {
			return
		}
		stats.events.Add(ctx, 1, eventOpts[ev])
		switch ev {
		case tree.EventInsert:
			stats.size.Add(ctx, 1, sizeOpt)
		case tree.EventRemove:
			stats.size.Add(ctx, -1, sizeOpt)
		default:
		}
	}
}

// Released drops the keys of a released tree from the live size.
func (stats *TreeStats) Released(script string, n int64) {
	if stats == nil || n == 0 {
		return
	}
	stats.size.Add(context.Background(), -n, metric.WithAttributes(attribute.String("script", script)))
}
