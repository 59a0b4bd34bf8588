package cachelist

import "sort"

// Range is a half-open index interval [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether i lies inside the range.
func (r Range) Contains(i int) bool {
	return r.Start <= i && i < r.End
}

// Intersect returns the overlap of r and o, which may be empty.
func (r Range) Intersect(o Range) Range {
	out := Range{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

// rangeSet is a sorted list of maximal, non-overlapping ranges.
type rangeSet []Range

// find returns the position of the range containing i, or -1.
func (rs rangeSet) find(i int) int {
	pos := sort.Search(len(rs), func(k int) bool { return rs[k].Start > i })
	if pos > 0 && rs[pos-1].Contains(i) {
		return pos - 1
	}
	return -1
}

// add marks index i, merging with the ranges that end at i or start at i+1.
func (rs rangeSet) add(i int) rangeSet {
	pos := sort.Search(len(rs), func(k int) bool { return rs[k].Start > i })
	if pos > 0 && rs[pos-1].Contains(i) {
		return rs
	}

	joinLeft := pos > 0 && rs[pos-1].End == i
	joinRight := pos < len(rs) && rs[pos].Start == i+1

	switch {
	case joinLeft && joinRight:
		rs[pos-1].End = rs[pos].End
		return append(rs[:pos], rs[pos+1:]...)
	case joinLeft:
		rs[pos-1].End = i + 1
		return rs
	case joinRight:
		rs[pos].Start = i
		return rs
	default:
		rs = append(rs, Range{})
		copy(rs[pos+1:], rs[pos:])
		rs[pos] = Range{Start: i, End: i + 1}
		return rs
	}
}

// remove unmarks index i, splitting the containing range if needed.
func (rs rangeSet) remove(i int) rangeSet {
	pos := rs.find(i)
	if pos < 0 {
		return rs
	}

	r := rs[pos]
	left := Range{Start: r.Start, End: i}
	right := Range{Start: i + 1, End: r.End}

	switch {
	case left.Len() > 0 && right.Len() > 0:
		rs[pos] = left
		rs = append(rs, Range{})
		copy(rs[pos+2:], rs[pos+1:])
		rs[pos+1] = right
		return rs
	case left.Len() > 0:
		rs[pos] = left
		return rs
	case right.Len() > 0:
		rs[pos] = right
		return rs
	default:
		return append(rs[:pos], rs[pos+1:]...)
	}
}

// covers reports whether r lies entirely inside one range.
func (rs rangeSet) covers(r Range) bool {
	if r.Len() == 0 {
		return true
	}
	pos := rs.find(r.Start)
	return pos >= 0 && rs[pos].End >= r.End
}

// countIn returns how many indices of r are inside the set.
func (rs rangeSet) countIn(r Range) int {
	n := 0
	start := sort.Search(len(rs), func(k int) bool { return rs[k].End > r.Start })
	for k := start; k < len(rs) && rs[k].Start < r.End; k++ {
		n += rs[k].Intersect(r).Len()
	}
	return n
}

// buildRanges computes maximal ranges of indices where keep returns true.
func buildRanges(n int, keep func(int) bool) rangeSet {
	var rs rangeSet
	start := -1
	for i := 0; i < n; i++ {
		if keep(i) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			rs = append(rs, Range{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		rs = append(rs, Range{Start: start, End: n})
	}
	return rs
}
