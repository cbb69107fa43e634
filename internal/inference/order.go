package inference

import (
	"sort"
	"strconv"
)

// naturalLess orders identifiers numerically when both are integers and
// lexicographically otherwise, with integers sorting first. Knowledge bases
// usually number their questions "1", "2", ... "10".
func naturalLess(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func sortNatural(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return naturalLess(ids[i], ids[j]) })
}
