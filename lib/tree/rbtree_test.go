package tree

import (
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xtree/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireColorsAndKeys(t *testing.T, tree RBTree[uint64], expected []checkData) {
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, key)
		return true
	})
	require.NoError(t, Validate[uint64](tree))
}

// shape renders the tree in preorder, it differs when
// the structure or the colors differ.
func shape[K any](node RBNode[K]) string {
	if node == nil {
		return "nil"
	}
	return fmt.Sprintf("(%v:%s %s %s)", node.Key(), node.Color(), shape(node.Left()), shape(node.Right()))
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNode[uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)

	require.True(t, nilNode2.isBlack())
	require.False(t, nilNode2.isRed())
	require.Nil(t, nilNode2.Left())
	require.Nil(t, nilNode2.Right())
	require.Nil(t, nilNode2.Parent())
}

func TestRbtreeLeftAndRightRotate_Pred(t *testing.T) {
	tree := &rbTree[uint64]{
		cmp:            infra.OrderedKeyCompare[uint64],
		isDesc:         false,
		isRmBorrowPred: true,
	}

	tree.Insert(52)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 52},
	})

	tree.Insert(47)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	tree.Insert(3)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})

	tree.Insert(35)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	tree.Insert(24)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// remove

	tree.Delete(24)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	tree.Delete(47)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 3}, {Black, 35}, {Black, 52},
	})

	tree.Delete(52)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	tree.Delete(3)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 35},
	})

	tree.Delete(35)
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeLeftAndRightRotate_Succ(t *testing.T) {
	tree := NewRBTree[uint64]()
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		tree.Insert(key)
	}
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// 35 is moved into 24's position and inherits the black.
	tree.Delete(24)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52},
	})

	// 52 leaves a double black NIL, fixed by the far nephew 3.
	tree.Delete(47)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 3}, {Black, 35}, {Black, 52},
	})
	require.Equal(t, uint64(35), tree.Root().Key())

	tree.Delete(52)
	requireColorsAndKeys(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	tree.Delete(35)
	requireColorsAndKeys(t, tree, []checkData{
		{Black, 3},
	})
	require.Nil(t, tree.Root().Parent())

	tree.Delete(3)
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeRotate_KeepsInorder(t *testing.T) {
	tree := &rbTree[uint64]{cmp: infra.OrderedKeyCompare[uint64]}
	for i := uint64(1); i <= 7; i++ {
		tree.Insert(i)
	}
	expected := tree.Inorder()
	root := tree.root

	tree.leftRotate(root)
	require.Same(t, root.parent, tree.root)
	require.Same(t, root, tree.root.left)
	require.Nil(t, tree.root.parent)
	require.Equal(t, expected, tree.Inorder())
	require.NoError(t, ParentLinkValidate[uint64](tree))

	tree.rightRotate(tree.root)
	require.Same(t, root, tree.root)
	require.Equal(t, expected, tree.Inorder())
	require.NoError(t, ParentLinkValidate[uint64](tree))

	// Rotate a non-root node, the grandparent slot is repointed.
	p := tree.root.right
	tree.rightRotate(p)
	require.Same(t, p, tree.root.right.right)
	require.Same(t, tree.root, tree.root.right.parent)
	require.Equal(t, expected, tree.Inorder())
	require.NoError(t, ParentLinkValidate[uint64](tree))

	leaf := tree.root.left
	require.Panics(t, func() {
		tree.leftRotate(leaf)
	})
	require.Panics(t, func() {
		tree.rightRotate(leaf)
	})
}

func TestRbtree_Scenarios(t *testing.T) {
	testcases := []struct {
		name     string
		inserts  []int
		deletes  []int
		expected []int
	}{
		{
			name:     "insert only",
			inserts:  []int{10, 5, 15, 12, 1},
			expected: []int{1, 5, 10, 12, 15},
		},
		{
			name:     "delete leaf",
			inserts:  []int{10, 5, 15},
			deletes:  []int{5},
			expected: []int{10, 15},
		},
		{
			name:     "delete node with one child",
			inserts:  []int{10, 5, 2},
			deletes:  []int{5},
			expected: []int{2, 10},
		},
		{
			name:     "delete node with two children",
			inserts:  []int{20, 10, 30, 25, 35},
			deletes:  []int{30},
			expected: []int{10, 20, 25, 35},
		},
		{
			name:     "delete root",
			inserts:  []int{10, 5, 15},
			deletes:  []int{10},
			expected: []int{5, 15},
		},
		{
			name:     "delete all",
			inserts:  []int{3, 1, 2},
			deletes:  []int{1, 2, 3},
			expected: []int{},
		},
	}
	for _, tc := range testcases {
		for _, borrowPred := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s pred=%v", tc.name, borrowPred), func(tt *testing.T) {
				opts := []RBTreeOpt[int]{}
				if borrowPred {
					opts = append(opts, WithRBTreeRemoveBorrowPred[int]())
				}
				tree := NewRBTree[int](opts...)
				for _, key := range tc.inserts {
					tree.Insert(key)
					require.NoError(tt, Validate[int](tree))
				}
				for _, key := range tc.deletes {
					tree.Delete(key)
					require.NoError(tt, Validate[int](tree))
				}
				require.Equal(tt, tc.expected, tree.Inorder())
				require.Equal(tt, int64(len(tc.expected)), tree.Len())
			})
		}
	}
}

func TestRbtree_SearchAndMissingKeys(t *testing.T) {
	tree := NewRBTree[int]()
	require.False(t, tree.Search(1))
	tree.Delete(1)
	require.Equal(t, int64(0), tree.Len())
	require.Empty(t, tree.Inorder())

	for _, key := range []int{8, 4, 12, 2, 6, 10, 14} {
		tree.Insert(key)
	}
	for _, key := range []int{8, 4, 12, 2, 6, 10, 14} {
		require.True(t, tree.Search(key))
	}
	for _, key := range []int{-1, 0, 1, 3, 5, 7, 9, 11, 13, 15} {
		require.False(t, tree.Search(key))
	}

	before := shape(tree.Root())
	tree.Delete(7)
	require.Equal(t, before, shape(tree.Root()))
	require.Equal(t, int64(7), tree.Len())
}

func TestRbtree_InsertDuplicateIsNoop(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 0; i < 64; i++ {
		tree.Insert(randv2.IntN(128))
	}
	before := shape(tree.Root())
	size := tree.Len()
	keys := tree.Inorder()
	for _, key := range keys {
		tree.Insert(key)
		require.Equal(t, before, shape(tree.Root()))
	}
	require.Equal(t, size, tree.Len())
	require.Equal(t, keys, tree.Inorder())
}

func TestRbtree_InsertThenDeleteRestoresKeys(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range lo.Shuffle(lo.Range(200)) {
		tree.Insert(key * 2)
	}
	expected := tree.Inorder()
	for i := 0; i < 200; i++ {
		key := i*2 + 1
		tree.Insert(key)
		require.True(t, tree.Search(key))
		tree.Delete(key)
		require.False(t, tree.Search(key))
		require.Equal(t, expected, tree.Inorder())
		require.NoError(t, Validate[int](tree))
	}
}

func TestRbtree_MinMaxDeleteMin(t *testing.T) {
	tree := NewRBTree[uint64]()
	_, ok := tree.Min()
	require.False(t, ok)
	_, ok = tree.Max()
	require.False(t, ok)
	_, ok = tree.DeleteMin()
	require.False(t, ok)

	for _, key := range []uint64{52, 47, 3, 35, 24} {
		tree.Insert(key)
	}
	_min, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, uint64(3), _min)
	_max, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, uint64(52), _max)

	for _, expected := range []uint64{3, 24, 35, 47, 52} {
		key, ok := tree.DeleteMin()
		require.True(t, ok)
		require.Equal(t, expected, key)
		require.NoError(t, Validate[uint64](tree))
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestRbtree_Desc(t *testing.T) {
	tree := NewRBTree[int64](WithRBTreeDesc[int64]())
	for i := int64(0); i < 1000; i++ {
		tree.Insert(i)
	}
	require.NoError(t, Validate[int64](tree))
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, 999-idx, key)
		return true
	})
	_min, _ := tree.Min()
	require.Equal(t, int64(999), _min)
	for i := int64(0); i < 1000; i += 2 {
		tree.Delete(i)
	}
	require.NoError(t, Validate[int64](tree))
	require.Equal(t, int64(500), tree.Len())
	require.True(t, tree.Search(1))
	require.False(t, tree.Search(2))
}

func TestRbtree_Comparator(t *testing.T) {
	type version struct {
		major, minor int
	}
	cmp := func(i, j version) int64 {
		if i.major != j.major {
			return int64(i.major - j.major)
		}
		return int64(i.minor - j.minor)
	}
	tree := NewRBTreeFunc[version](cmp)
	tree.Insert(version{1, 2})
	tree.Insert(version{0, 9})
	tree.Insert(version{1, 0})
	tree.Insert(version{1, 2})
	require.Equal(t, []version{{0, 9}, {1, 0}, {1, 2}}, tree.Inorder())
	require.True(t, tree.Search(version{1, 0}))
	require.NoError(t, Validate[version](tree))

	require.Panics(t, func() {
		NewRBTreeFunc[version](nil)
	})
}

func TestRbtree_NaNKey(t *testing.T) {
	tree := NewRBTree[float64]()
	tree.Insert(1.5)
	require.Panics(t, func() {
		tree.Insert(math.NaN())
	})
	require.Equal(t, []float64{1.5}, tree.Inorder())
}

func TestRbtree_Observer(t *testing.T) {
	events := make([]RBEvent, 0, 8)
	tree := NewRBTree[int](WithRBTreeObserver[int](func(ev RBEvent) {
		events = append(events, ev)
	}))
	tree.Insert(1)
	tree.Insert(2)
	tree.Insert(3)
	require.Equal(t, []RBEvent{
		EventInsert,
		EventInsert,
		EventInsert,
		EventInsertOuterChild,
		EventLeftRotate,
	}, events)

	events = events[:0]
	tree.Insert(2)
	tree.Delete(4)
	require.Equal(t, []RBEvent{EventInsertDuplicate, EventRemoveMiss}, events)

	events = events[:0]
	tree.Insert(4)
	require.Equal(t, []RBEvent{EventInsert, EventInsertRedUncle}, events)

	events = events[:0]
	tree.Delete(1)
	require.Equal(t, []RBEvent{EventRemove, EventRemoveFarNephew, EventLeftRotate}, events)

	events = events[:0]
	tree.Delete(4)
	require.Equal(t, []RBEvent{EventRemove, EventRemoveBlackNephews}, events)
	require.Equal(t, []int{2, 3}, tree.Inorder())
}

func TestRbtree_AllEvents(t *testing.T) {
	seen := map[RBEvent]int{}
	tree := NewRBTree[int](WithRBTreeObserver[int](func(ev RBEvent) {
		seen[ev]++
	}))
	keys := lo.Shuffle(lo.Range(2000))
	for _, key := range keys {
		tree.Insert(key)
	}
	for _, key := range lo.Shuffle(keys) {
		tree.Delete(key)
	}
	for _, ev := range Events() {
		if ev == EventInsertDuplicate || ev == EventRemoveMiss {
			continue
		}
		require.Greaterf(t, seen[ev], 0, "event %s never seen", ev)
	}
	require.Equal(t, 2000, seen[EventInsert])
	require.Equal(t, 2000, seen[EventRemove])
}

func TestRbtree_HeightBound(t *testing.T) {
	tree := NewRBTree[uint64]()
	require.Equal(t, 0, tree.Height())
	total := uint64(100_000)
	for i := uint64(0); i < total; i++ {
		tree.Insert(i)
	}
	bound := 2 * math.Log2(float64(total+1))
	require.LessOrEqual(t, float64(tree.Height()), bound)

	for i := uint64(0); i < total; i += 3 {
		tree.Delete(i)
	}
	bound = 2 * math.Log2(float64(tree.Len()+1))
	require.LessOrEqual(t, float64(tree.Height()), bound)
	require.NoError(t, Validate[uint64](tree))
}

func TestRbtree_AllIterator(t *testing.T) {
	tree := NewRBTree[string]()
	for _, key := range strings.Fields("delta alpha echo charlie bravo") {
		tree.Insert(key)
	}
	keys := make([]string, 0, 5)
	for key := range tree.All() {
		keys = append(keys, key)
	}
	require.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, keys)

	keys = keys[:0]
	for key := range tree.All() {
		if key == "charlie" {
			break
		}
		keys = append(keys, key)
	}
	require.Equal(t, []string{"alpha", "bravo"}, keys)

	// Restart from the root.
	first := ""
	for key := range tree.All() {
		first = key
		break
	}
	require.Equal(t, "alpha", first)
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T, rbRmByPred bool) {
	total := uint64(1000)
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	tree := &rbTree[uint64]{
		cmp:            infra.OrderedKeyCompare[uint64],
		isDesc:         false,
		isRmBorrowPred: rbRmByPred,
	}

	for i := uint64(0); i < insertTotal; i++ {
		tree.Insert(i)
		require.NoError(t, Validate[uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		tree.Insert(i)
		require.NoError(t, Validate[uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		require.True(t, tree.Search(i))
		tree.Delete(i)
		require.False(t, tree.Search(i))
		require.NoError(t, Validate[uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	require.Equal(t, int64(insertTotal), tree.Len())
}

func TestRbtreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	type testcase struct {
		name       string
		rbRmByPred bool
	}
	testcases := []testcase{
		{
			name: "rm by succ",
		},
		{
			name:       "rm by pred",
			rbRmByPred: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveSequentialNumberRunCore(tt, tc.rbRmByPred)
		})
	}
}

func TestRBTreeRandomInsertAndRemove_SequentialNumber_Release(t *testing.T) {
	insertTotal := uint64(100_000)

	tree := NewRBTree[uint64]()

	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < insertTotal; i++ {
		tree.Insert(i)
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Empty(t, tree.Inorder())

	tree.Insert(1)
	require.Equal(t, []uint64{1}, tree.Inorder())
}

func rbtreeRandomInsertAndRemoveRunCore(t *testing.T, total int, rbRmByPred bool, violationCheck bool) {
	insertTotal := int(float64(total) * 0.8)
	removeTotal := int(float64(total) * 0.2)

	seen := make(map[uint64]struct{}, total)
	elements := make([]uint64, 0, total)
	for len(elements) < insertTotal+removeTotal {
		num := randv2.Uint64N(uint64(total) * 16)
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		elements = append(elements, num)
	}
	insertElements, removeElements := elements[:insertTotal], elements[insertTotal:]

	opts := []RBTreeOpt[uint64]{}
	if rbRmByPred {
		opts = append(opts, WithRBTreeRemoveBorrowPred[uint64]())
	}
	tree := NewRBTree[uint64](opts...)

	for i := 0; i < insertTotal; i++ {
		tree.Insert(insertElements[i])
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	sorted := append([]uint64(nil), insertElements...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	require.Equal(t, sorted, tree.Inorder())

	for i := 0; i < removeTotal; i++ {
		tree.Insert(removeElements[i])
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	require.NoError(t, Validate[uint64](tree))

	for _, key := range lo.Shuffle(removeElements) {
		tree.Delete(key)
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	require.Equal(t, sorted, tree.Inorder())
	require.NoError(t, Validate[uint64](tree))
}

func TestRbtreeRandomInsertAndRemove_RandomNumber(t *testing.T) {
	type testcase struct {
		name           string
		rbRmByPred     bool
		total          int
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:  "rm by succ 200000",
			total: 200000,
		},
		{
			name:       "rm by pred 200000",
			rbRmByPred: true,
			total:      200000,
		},
		{
			name:           "violation check rm by succ 2000",
			total:          2000,
			violationCheck: true,
		},
		{
			name:           "violation check rm by pred 2000",
			rbRmByPred:     true,
			total:          2000,
			violationCheck: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveRunCore(tt, tc.total, tc.rbRmByPred, tc.violationCheck)
		})
	}
}

func TestRbtree_RandomOperationsAgainstMap(t *testing.T) {
	tree := NewRBTree[int]()
	oracle := map[int]struct{}{}
	for i := 0; i < 5000; i++ {
		key := randv2.IntN(300)
		switch randv2.IntN(3) {
		case 0, 1:
			tree.Insert(key)
			oracle[key] = struct{}{}
		default:
			tree.Delete(key)
			delete(oracle, key)
		}
		require.Equal(t, int64(len(oracle)), tree.Len())
		if i%50 == 0 {
			require.NoError(t, Validate[int](tree))
			expected := lo.Keys(oracle)
			sort.Ints(expected)
			require.Equal(t, expected, tree.Inorder())
		}
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(rngArr[i])
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(i)
	}
}
