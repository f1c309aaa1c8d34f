package engine

import (
	"cmp"
	"slices"
)

// SortFunc sorts data in place. Built-in algorithms and plugin-provided
// algorithms are both exposed through this shape once element type is fixed.
type SortFunc[T cmp.Ordered] func(data []T)

// BuiltinNames lists the algorithm names the engine always ships, regardless
// of element type or loaded plugins.
var BuiltinNames = []string{"std_sort", "insertion_sort", "heap_sort", "quick_sort"}

// Builtin returns the generic implementation for name, instantiated at the
// call site with a concrete element type. The zero value and false are
// returned for names the engine does not recognize (e.g. a plugin-only
// algorithm).
func Builtin[T cmp.Ordered](name string) (SortFunc[T], bool) {
	switch name {
	case "std_sort":
		return stdSort[T], true
	case "insertion_sort":
		return insertionSort[T], true
	case "heap_sort":
		return heapSort[T], true
	case "quick_sort":
		return quickSort[T], true
	default:
		return nil, false
	}
}

func stdSort[T cmp.Ordered](data []T) {
	slices.SortFunc(data, cmp.Compare[T])
}

func insertionSort[T cmp.Ordered](data []T) {
	for i := 1; i < len(data); i++ {
		v := data[i]
		j := i - 1
		for j >= 0 && data[j] > v {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = v
	}
}

func heapSort[T cmp.Ordered](data []T) {
	n := len(data)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(data, i, n)
	}
	for end := n - 1; end > 0; end-- {
		data[0], data[end] = data[end], data[0]
		siftDown(data, 0, end)
	}
}

func siftDown[T cmp.Ordered](data []T, root, n int) {
	for {
		largest := root
		l, r := 2*root+1, 2*root+2
		if l < n && data[l] > data[largest] {
			largest = l
		}
		if r < n && data[r] > data[largest] {
			largest = r
		}
		if largest == root {
			return
		}
		data[root], data[largest] = data[largest], data[root]
		root = largest
	}
}

func quickSort[T cmp.Ordered](data []T) {
	quickSortRange(data, 0, len(data)-1)
}

func quickSortRange[T cmp.Ordered](data []T, lo, hi int) {
	for lo < hi {
		// Insertion sort for small partitions avoids recursion overhead and
		// worst-case blowup on already-sorted or reverse-sorted tails.
		if hi-lo < 16 {
			insertionSort(data[lo : hi+1])
			return
		}
		mid := lo + (hi-lo)/2
		if data[mid] < data[lo] {
			data[mid], data[lo] = data[lo], data[mid]
		}
		if data[hi] < data[lo] {
			data[hi], data[lo] = data[lo], data[hi]
		}
		if data[hi] < data[mid] {
			data[hi], data[mid] = data[mid], data[hi]
		}
		pivot := data[mid]
		i, j := lo, hi
		for i <= j {
			for data[i] < pivot {
				i++
			}
			for data[j] > pivot {
				j--
			}
			if i <= j {
				data[i], data[j] = data[j], data[i]
				i++
				j--
			}
		}
		if j-lo < hi-i {
			quickSortRange(data, lo, j)
			lo = i
		} else {
			quickSortRange(data, i, hi)
			hi = j
		}
	}
}

// isSorted reports whether data is in non-decreasing order.
func isSorted[T cmp.Ordered](data []T) bool {
	return slices.IsSortedFunc(data, cmp.Compare[T])
}
