package tree

// RBEvent is a step taken by the rbtree while mutating.
// The fixup events are named after the rebalance cases
// documented at insertRebalance and removeRebalance.
type RBEvent uint8

const (
	EventInsert RBEvent = iota
	EventInsertDuplicate
	EventRemove
	EventRemoveMiss
	EventLeftRotate
	EventRightRotate
	EventInsertRedUncle     // im-A
	EventInsertInnerChild   // im-B
	EventInsertOuterChild   // im-C
	EventRemoveRedSibling   // rm-A
	EventRemoveBlackNephews // rm-B
	EventRemoveNearNephew   // rm-C
	EventRemoveFarNephew    // rm-D
	_eventMax
)

var eventNames = [_eventMax]string{
	EventInsert:             "insert",
	EventInsertDuplicate:    "insert_duplicate",
	EventRemove:             "remove",
	EventRemoveMiss:         "remove_miss",
	EventLeftRotate:         "left_rotate",
	EventRightRotate:        "right_rotate",
	EventInsertRedUncle:     "insert_red_uncle",
	EventInsertInnerChild:   "insert_inner_child",
	EventInsertOuterChild:   "insert_outer_child",
	EventRemoveRedSibling:   "remove_red_sibling",
	EventRemoveBlackNephews: "remove_black_nephews",
	EventRemoveNearNephew:   "remove_near_nephew",
	EventRemoveFarNephew:    "remove_far_nephew",
}

func (ev RBEvent) String() string {
	if ev >= _eventMax {
		return "unknown"
	}
	return eventNames[ev]
}

// Events lists all the known events in declaration order.
func Events() []RBEvent {
	evs := make([]RBEvent, 0, _eventMax)
	for ev := EventInsert; ev < _eventMax; ev++ {
		evs = append(evs, ev)
	}
	return evs
}

// RBTreeObserver receives the events synchronously, on the goroutine
// mutating the tree. It must not touch the tree.
type RBTreeObserver func(ev RBEvent)

// MultiObserver fans out the events to the non-nil observers.
func MultiObserver(observers ...RBTreeObserver) RBTreeObserver {
	obs := make([]RBTreeObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			obs = append(obs, o)
		}
	}
	switch len(obs) {
	case 0:
		return nil
	case 1:
		return obs[0]
	default:
	}
	return func(ev RBEvent) {
		for _, o := range obs {
			o(ev)
		}
	}
}
