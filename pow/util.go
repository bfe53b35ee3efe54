package pow

import (
	"math/big"
	"sort"

	"github.com/gopicocoin/pico/serial"
)

func newOrderedFactors() Factors {
	return serial.NewOrderedMap[int]()
}

// sortNumericStrings sorts decimal-string integers ascending by value
// rather than lexicographically, so "9" sorts before "17" (spec §4.4
// "ascending numeric" canonical order).
func sortNumericStrings(nums []string) {
	sort.Slice(nums, func(i, j int) bool {
		a, _ := new(big.Int).SetString(nums[i], 10)
		b, _ := new(big.Int).SetString(nums[j], 10)
		return a.Cmp(b) < 0
	})
}
