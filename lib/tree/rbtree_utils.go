package tree

import (
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
)

func isBlack[K any](node RBNode[K]) bool {
	return node == nil || node.Color() == Black
}

func isRed[K any](node RBNode[K]) bool {
	return node != nil && node.Color() == Red
}

func isRoot[K any](node RBNode[K]) bool {
	return node != nil && node.Parent() == nil
}

func blackDepthTo[K any](target, to RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = aux.Parent() {
		if isBlack[K](aux) {
			depth++
		}
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Inorder traversal to load all nodes.
func inorderNodes[K any](tree RBTree[K]) []RBNode[K] {
	size := tree.Len()
	aux := tree.Root()
	if size <= 0 || aux == nil {
		return nil
	}

	nodes := make([]RBNode[K], 0, size)
	stack := make([]RBNode[K], 0, maxHeight(size))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}
	for n := len(stack); n > 0; n = len(stack) {
		aux = stack[n-1]
		nodes = append(nodes, aux)
		stack = stack[:n-1]
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nodes
}

func RootColorValidate[K any](tree RBTree[K]) error {
	if root := tree.Root(); isRed[K](root) {
		return infra.NewErrorStack("rbtree root is red")
	}
	return nil
}

// Inorder traversal to validate the rbtree properties.
func RedViolationValidate[K any](tree RBTree[K]) error {
	for _, aux := range inorderNodes[K](tree) {
		if isRed[K](aux) && (isRed[K](aux.Left()) || isRed[K](aux.Right())) {
			return infra.NewErrorStack("rbtree red violation")
		}
	}
	return nil
}

// BFS traversal to load all leaves.
func bfsLeaves[K any](tree RBTree[K]) []RBNode[K] {
	size := tree.Len()
	aux := tree.Root()
	if size <= 0 || aux == nil {
		return nil
	}

	leaves := make([]RBNode[K], 0, size>>1+1)
	stack := make([]RBNode[K], 0, size>>1+1)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)

	for len(stack) > 0 {
		aux = stack[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			stack = append(stack, l)
		}
		if r != nil {
			stack = append(stack, r)
		}
		stack = stack[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
If it holds at root, it holds at every node, the paths
below a node share the same prefix from the root.
*/
func BlackViolationValidate[K any](tree RBTree[K]) error {
	leaves := bfsLeaves[K](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K](leaves[0], tree.Root())
	for i := 1; i < len(leaves); i++ {
		if blackDepthTo[K](leaves[i], tree.Root()) != blackDepth {
			return infra.NewErrorStack("rbtree black violation")
		}
	}
	return nil
}

// OrderViolationValidate checks the inorder keys are strictly
// increasing by cmp, and the node count matches Len.
func OrderViolationValidate[K any](tree RBTree[K], cmp infra.KeyComparator[K]) error {
	nodes := inorderNodes[K](tree)
	if int64(len(nodes)) != tree.Len() {
		return infra.NewErrorStack("rbtree length mismatch")
	}
	for i := 1; i < len(nodes); i++ {
		if cmp(nodes[i-1].Key(), nodes[i].Key()) >= 0 {
			return infra.NewErrorStack("rbtree order violation")
		}
	}
	return nil
}

// ParentLinkValidate checks each child's back-reference points to
// the node owning it.
func ParentLinkValidate[K any](tree RBTree[K]) error {
	if root := tree.Root(); root != nil && !isRoot[K](root) {
		return infra.NewErrorStack("rbtree root with parent")
	}
	for _, aux := range inorderNodes[K](tree) {
		if l := aux.Left(); l != nil && l.Parent() != aux {
			return infra.NewErrorStack("rbtree left child parent link broken")
		}
		if r := aux.Right(); r != nil && r.Parent() != aux {
			return infra.NewErrorStack("rbtree right child parent link broken")
		}
	}
	return nil
}

type keyComparer[K any] interface {
	keyCompare(k1, k2 K) int64
}

// Validate runs all the validations and combines the violations.
// The order validation uses the tree own order (including desc).
func Validate[K any](tree RBTree[K]) error {
	errs := []error{
		RootColorValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		ParentLinkValidate[K](tree),
	}
	if kc, ok := tree.(keyComparer[K]); ok {
		errs = append(errs, OrderViolationValidate[K](tree, kc.keyCompare))
	}
	return multierr.Combine(errs...)
}
