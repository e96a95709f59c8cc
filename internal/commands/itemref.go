package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shoplist/internal/store"
)

// ErrItemRefRequired indicates no item number was provided.
var ErrItemRefRequired = errors.New("item number required")

// ParseItemNumbers parses 1-based item numbers from args.
// Numbers may be separate arguments or comma separated ("1,3 5").
// Duplicates are dropped; the first occurrence keeps its position.
func ParseItemNumbers(args []string) ([]int, error) {
	var nums []int
	seen := make(map[int]bool)
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if !isAllDigits(part) {
				return nil, fmt.Errorf("invalid item number: %s", part)
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid item number: %s", part)
			}
			if !seen[n] {
				seen[n] = true
				nums = append(nums, n)
			}
		}
	}
	if len(nums) == 0 {
		return nil, ErrItemRefRequired
	}
	return nums, nil
}

// ResolveItems maps item numbers to the items at those positions in view.
func ResolveItems(view []store.Item, nums []int) ([]store.Item, error) {
	items := make([]store.Item, 0, len(nums))
	for _, n := range nums {
		if n < 1 || n > len(view) {
			return nil, fmt.Errorf("item number out of range: %d", n)
		}
		items = append(items, view[n-1])
	}
	return items, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
