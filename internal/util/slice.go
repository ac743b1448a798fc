package util

import (
	"golang.org/x/exp/constraints"
	"sort"
)

func ContainsString(s []string, e string) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}

// Dedup returns the given values in their original order with duplicates and empty entries removed
func Dedup(s []string) []string {
	var result []string
	for _, v := range s {
		if len(v) <= 0 || ContainsString(result, v) {
			continue
		}
		result = append(result, v)
	}
	return result
}

func sortSlice[T constraints.Ordered](s []T) {
	sort.Slice(s, func(i, j int) bool {
		return s[i] < s[j]
	})
}

func SortedKeys[T constraints.Ordered, K any](input map[T]K) []T {
	result := make([]T, 0, len(input))
	for k := range input {
		result = append(result, k)
	}
	sortSlice(result)
	return result
}
