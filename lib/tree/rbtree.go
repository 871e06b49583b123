package tree

import (
	"iter"
	"math/bits"

	"github.com/benz9527/xtree/lib/infra"
)

type rbNode[K any] struct {
	parent *rbNode[K] // back-reference only, never owns
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
}

func (node *rbNode[K]) Color() RBColor {
	return node.color
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Left() RBNode[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K]) Right() RBNode[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

// The NIL leaf is black.
func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K]) Direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K]) minimum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K]) maximum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// unlink drops all the references held by a detached node.
func (node *rbNode[K]) unlink() {
	node.parent = nil
	node.left = nil
	node.right = nil
}

type rbTree[K any] struct {
	root           *rbNode[K]
	count          int64
	cmp            infra.KeyComparator[K]
	observer       RBTreeObserver
	isDesc         bool
	isRmBorrowPred bool
}

func (tree *rbTree[K]) keyCompare(k1, k2 K) int64 {
	if !tree.isDesc {
		return tree.cmp(k1, k2)
	}
	return tree.cmp(k2, k1)
}

func (tree *rbTree[K]) emit(ev RBEvent) {
	if tree.observer != nil {
		tree.observer(ev)
	}
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) Root() RBNode[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// So the shortest path nodes are black nodes. Otherwise,
// the path must contain red node.
// The longest path nodes' number is 2 * shortest path nodes' number.
// The height is bounded by 2*log2(n+1).

// maxHeight is the 2*log2(n+1) bound.
func maxHeight(n int64) int {
	if n <= 0 {
		return 0
	}
	return bits.Len64(uint64(n)+1) << 1
}

// replaceChild points the slot of old's parent (or the root) to x.
// The x's parent back-reference is fixed as well.
func (tree *rbTree[K]) replaceChild(old, x *rbNode[K]) {
	p := old.parent
	switch dir := old.Direction(); dir {
	case Root:
		tree.root = x
	case Left:
		p.left = x
	case Right:
		p.right = x
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to replace")
	}
	if x != nil {
		x.parent = p
	}
}

/*
		 |                         |
		 X                         Y
		/ \     leftRotate(X)     / \
	   L   Y    ============>    X   Yr
		  / \                   / \
		Yl   Yr                L   Yl
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	tree.replaceChild(x, y)
	y.left = x
	x.parent = y
	tree.emit(EventLeftRotate)
}

/*
		   |                         |
		   X                         Y
		  / \     rightRotate(X)    / \
		 Y   R    ============>   Yl   X
		/ \                           / \
	  Yl   Yr                       Yr   R
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	tree.replaceChild(x, y)
	y.right = x
	x.parent = y
	tree.emit(EventRightRotate)
}

// i1: Empty rbtree, insert directly, but root node is painted to black.
// i2: The key is present, nothing changed.
func (tree *rbTree[K]) Insert(key K) {
	if /* i1 */ tree.root == nil {
		tree.root = &rbNode[K]{
			key:   key,
			color: Black,
		}
		tree.count++
		tree.emit(EventInsert)
		return
	}

	var (
		x, y *rbNode[K] = tree.root, nil
		res  int64
	)
	for x != nil {
		y = x
		res = tree.keyCompare(key, x.key)
		if /* i2 */ res == 0 {
			tree.emit(EventInsertDuplicate)
			return
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
	}
	if res < 0 {
		y.left = z
	} else {
		y.right = z
	}

	tree.count++
	tree.emit(EventInsert)
	tree.insertRebalance(z)
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

The loop only runs while the parent P is red. A black parent (or no
parent, X is root) holds p3 and p4 already.

im-A: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Recursive to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im-B: The parent P is red but the uncle U is black. (red-violation)
X is the inner child of G. Rotate P to straighten the zigzag.
After rotation it is still red-violation. Here must enter im-C to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im-C: Handle im-B scenario, current node is the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) {
	for x.parent.isRed() {
		p := x.parent
		gp := p.parent
		if gp == nil {
			// Red root, repainted below.
			break
		}

		if p == gp.left {
			if /* im-A */ uncle := gp.right; uncle.isRed() {
				p.color = Black
				uncle.color = Black
				gp.color = Red
				x = gp
				tree.emit(EventInsertRedUncle)
				continue
			}
			if /* im-B */ x == p.right {
				tree.emit(EventInsertInnerChild)
				tree.leftRotate(p)
				x, p = p, x
			}
			/* im-C */
			tree.emit(EventInsertOuterChild)
			p.color = Black
			gp.color = Red
			tree.rightRotate(gp)
		} else {
			if /* im-A */ uncle := gp.left; uncle.isRed() {
				p.color = Black
				uncle.color = Black
				gp.color = Red
				x = gp
				tree.emit(EventInsertRedUncle)
				continue
			}
			if /* im-B */ x == p.left {
				tree.emit(EventInsertInnerChild)
				tree.rightRotate(p)
				x, p = p, x
			}
			/* im-C */
			tree.emit(EventInsertOuterChild)
			p.color = Black
			gp.color = Red
			tree.leftRotate(gp)
		}
		break
	}
	tree.root.color = Black
}

func (tree *rbTree[K]) search(key K) *rbNode[K] {
	for aux := tree.root; aux != nil; {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K]) Search(key K) bool {
	return tree.search(key) != nil
}

func (tree *rbTree[K]) Delete(key K) {
	z := tree.search(key)
	if z == nil {
		tree.emit(EventRemoveMiss)
		return
	}
	tree.removeNode(z)
}

func (tree *rbTree[K]) DeleteMin() (key K, ok bool) {
	_min := tree.root.minimum()
	if _min == nil {
		return key, false
	}
	key = _min.key
	tree.removeNode(_min)
	return key, true
}

/*
Z is the node holding the key to be removed.
Y is the node spliced out of its position.
X is the node moved into Y's position, it may be NIL.

r1: Z has no left child, replace Z by its right child (X may be NIL).
Y is Z.

r2: Z has no right child, replace Z by its left child.
Y is Z.

r3: Z has left and right child.
Find Z's succ (or pred) Y. Y has no left (or right) child.
Replace Y by its right (or left) child X. Then move Y into the Z's
position, Y inherits Z's children and color. The Z's node is dropped,
keys are never swapped.

Find succ:

	  |                    |
	  Z                    Y
	 / \                  / \
	L  ..   splice(Y)    L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  Y  ..                X  ..
	   \
	    X

The color removed from the tree is the Y's original color.
A red one holds all properties. A black one makes the X's path
short of one black node (double black), we have to rebalance.
*/
func (tree *rbTree[K]) removeNode(z *rbNode[K]) {
	var (
		x, xp  *rbNode[K]
		y      = z
		yColor = y.color
	)

	if /* r1 */ z.left == nil {
		x, xp = z.right, z.parent
		tree.replaceChild(z, z.right)
	} else if /* r2 */ z.right == nil {
		x, xp = z.left, z.parent
		tree.replaceChild(z, z.left)
	} else if /* r3 pred */ tree.isRmBorrowPred {
		y = z.left.maximum()
		yColor = y.color
		x = y.left
		if y.parent == z {
			xp = y
		} else {
			xp = y.parent
			tree.replaceChild(y, y.left)
			y.left = z.left
			y.left.parent = y
		}
		tree.replaceChild(z, y)
		y.right = z.right
		y.right.parent = y
		y.color = z.color
	} else /* r3 succ */ {
		y = z.right.minimum()
		yColor = y.color
		x = y.right
		if y.parent == z {
			xp = y
		} else {
			xp = y.parent
			tree.replaceChild(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		tree.replaceChild(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	z.unlink()
	tree.count--
	tree.emit(EventRemove)

	if yColor == Black {
		tree.removeRebalance(x, xp)
	}
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is double black, it may be NIL and P is its parent.
Sc is the same direction to X and it X's sibling's child node (near).
Sd is the opposite direction to X and it X's sibling's child node (far).

rm-A: Current node X's sibling S is red, so the parent P, nephew node Sc
and Sd must be black. (Otherwise, red-violation)
(1) repaint S into black, P into red.
(2) X is left node of P, left rotate P. (Mirror if X is right node)
The new sibling is black, enter rm-B, rm-C or rm-D.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm-B: Current node X's sibling S, nephew node Sc and Sd are black.
Paint the S into red to satisfy p4 locally. Then recursive to handle P.
If P is red, the loop ends and P is painted into black.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm-C: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay)
(1) Repaint S into red, Sc into black.
(2) If X is left node of P, right rotate S. (Mirror if X is right node)
Enter into rm-D to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm-D: Current node X's sibling S is black and nephew node Sd is red.
Ignore X's parent P's color (red or black is okay)
(1) Paint S into P's color, P into black, Sd into black.
(2) If X is left node of P, left rotate P. (Mirror if X is right node)
All properties hold, end the loop.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K]) removeRebalance(x, p *rbNode[K]) {
	for x != tree.root && x.isBlack() {
		if p == nil {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove rebalance double black node without parent")
		}

		if x == p.left {
			sibling := p.right
			if sibling == nil {
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm-A), double black node without sibling")
			}
			if /* rm-A */ sibling.isRed() {
				tree.emit(EventRemoveRedSibling)
				sibling.color = Black
				p.color = Red
				tree.leftRotate(p)
				sibling = p.right
			}
			if /* rm-B */ sibling.left.isBlack() && sibling.right.isBlack() {
				tree.emit(EventRemoveBlackNephews)
				sibling.color = Red
				x, p = p, p.parent
				continue
			}
			if /* rm-C */ sibling.right.isBlack() {
				tree.emit(EventRemoveNearNephew)
				sibling.left.color = Black
				sibling.color = Red
				tree.rightRotate(sibling)
				sibling = p.right
			}
			/* rm-D */
			tree.emit(EventRemoveFarNephew)
			sibling.color = p.color
			p.color = Black
			sibling.right.color = Black
			tree.leftRotate(p)
		} else {
			sibling := p.left
			if sibling == nil {
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm-A), double black node without sibling")
			}
			if /* rm-A */ sibling.isRed() {
				tree.emit(EventRemoveRedSibling)
				sibling.color = Black
				p.color = Red
				tree.rightRotate(p)
				sibling = p.left
			}
			if /* rm-B */ sibling.left.isBlack() && sibling.right.isBlack() {
				tree.emit(EventRemoveBlackNephews)
				sibling.color = Red
				x, p = p, p.parent
				continue
			}
			if /* rm-C */ sibling.left.isBlack() {
				tree.emit(EventRemoveNearNephew)
				sibling.right.color = Black
				sibling.color = Red
				tree.leftRotate(sibling)
				sibling = p.left
			}
			/* rm-D */
			tree.emit(EventRemoveFarNephew)
			sibling.color = p.color
			p.color = Black
			sibling.left.color = Black
			tree.rightRotate(p)
		}
		x = tree.root
	}
	if x != nil {
		x.color = Black
	}
}

func (tree *rbTree[K]) Min() (key K, ok bool) {
	if _min := tree.root.minimum(); _min != nil {
		return _min.key, true
	}
	return key, false
}

func (tree *rbTree[K]) Max() (key K, ok bool) {
	if _max := tree.root.maximum(); _max != nil {
		return _max.key, true
	}
	return key, false
}

// Height is the number of nodes on the longest root to leaf path.
func (tree *rbTree[K]) Height() int {
	if tree.root == nil {
		return 0
	}

	height := 0
	level := []*rbNode[K]{tree.root}
	for len(level) > 0 {
		height++
		next := make([]*rbNode[K], 0, len(level)<<1)
		for _, n := range level {
			if n.left != nil {
				next = append(next, n.left)
			}
			if n.right != nil {
				next = append(next, n.right)
			}
		}
		level = next
	}
	return height
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	aux := tree.root
	if tree.count <= 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, maxHeight(tree.count))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

func (tree *rbTree[K]) Inorder() []K {
	keys := make([]K, 0, tree.count)
	tree.Foreach(func(_ int64, _ RBColor, key K) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// All is not restartable. A new range always starts from the root.
func (tree *rbTree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		tree.Foreach(func(_ int64, _ RBColor, key K) bool {
			return yield(key)
		})
	}
}

// Release drops all nodes and unlinks them one by one.
func (tree *rbTree[K]) Release() {
	aux := tree.root
	tree.root = nil
	if aux == nil {
		tree.count = 0
		return
	}

	stack := make([]*rbNode[K], 0, maxHeight(tree.count))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		r := aux.right
		aux.unlink()
		tree.count--
		stack = stack[:size-1]
		for aux = r; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

type RBTreeOpt[K any] func(*rbTree[K])

func WithRBTreeDesc[K any]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

// WithRBTreeRemoveBorrowPred splices the predecessor instead of the
// successor while removing a node with two children.
func WithRBTreeRemoveBorrowPred[K any]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isRmBorrowPred = true
	}
}

func WithRBTreeObserver[K any](observer RBTreeObserver) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.observer = observer
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	return NewRBTreeFunc[K](infra.OrderedKeyCompare[K], opts...)
}

// NewRBTreeFunc builds the rbtree with a caller defined total order.
func NewRBTreeFunc[K any](cmp infra.KeyComparator[K], opts ...RBTreeOpt[K]) RBTree[K] {
	if cmp == nil {
		panic( /* debug assertion */ "[rbtree] nil key comparator")
	}
	tree := &rbTree[K]{
		cmp:            cmp,
		isDesc:         false,
		isRmBorrowPred: false,
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
