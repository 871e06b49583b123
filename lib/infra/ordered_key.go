package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
// If future releases of Go add new predeclared unsigned integer types,
// this constraint will be modified to include them.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is a constraint that permits any integer type.
// If future releases of Go add new predeclared integer types,
// this constraint will be modified to include them.
type Integer interface {
	Signed | Unsigned
}

// Float is a constraint that permits any floating-point type.
// If future releases of Go add new predeclared floating-point types,
// this constraint will be modified to include them.
// NaN is not ordered against any value, so it is rejected by
// the OrderedKeyCompare.
type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// KeyComparator must define a total order over K.
// Assume i is the new key.
//  1. i == j (i-j == 0, return 0)
//  2. i > j (i-j > 0, return 1), turn to right part.
//  3. i < j (i-j < 0, return -1), turn to left part.
type KeyComparator[K any] func(i, j K) int64

// OrderedKeyCompare is the natural ascending order of K.
func OrderedKeyCompare[K OrderedKey](i, j K) int64 {
	if /* NaN */ i != i || j != j {
		panic( /* debug assertion */ "[infra] NaN key without total order")
	}
	if i == j {
		return 0
	} else if i < j {
		return -1
	}
	return 1
}

// ReversedKeyComparator flips the order of cmp.
func ReversedKeyComparator[K any](cmp KeyComparator[K]) KeyComparator[K] {
	return func(i, j K) int64 {
		return cmp(j, i)
	}
}
