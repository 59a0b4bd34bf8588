// Package cachelist provides a fixed-length, index-addressable cache whose
// slots are filled out of order by background producers.
//
// Every slot is in one of three states: Unknown (never computed), Empty
// (computed without a result) or Value (computed with a result). The cache
// keeps two range summaries current on every update:
//
//   - visited ranges: maximal half-open intervals of computed slots
//   - positive ranges: maximal intervals whose values satisfy the positive
//     predicate supplied at construction
//
// Updates touch only the ranges adjacent to the updated index, so filling a
// long video frame by frame stays linear overall.
package cachelist
