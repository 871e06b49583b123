package tree

import "iter"

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	default:
	}
	return "RBColor(unknown)"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "RBDirection(unknown)"
}

// RBNode is the read-only view of a tree node.
// The absent (NIL) children are returned as nil interfaces.
type RBNode[K any] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
}

// RBTree is a single-writer in-memory ordered set.
// It is not safe for concurrent mutation. Callers sharing one tree
// between goroutines have to serialize the access by themselves.
type RBTree[K any] interface {
	Len() int64
	Root() RBNode[K]
	Height() int
	// Insert ignores the key already present.
	Insert(key K)
	// Delete ignores the key not present.
	Delete(key K)
	DeleteMin() (K, bool)
	Search(key K) bool
	Min() (K, bool)
	Max() (K, bool)
	// Inorder returns a fresh snapshot of the keys in tree order.
	Inorder() []K
	All() iter.Seq[K]
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Release()
}
