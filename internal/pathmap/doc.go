// Package pathmap rewrites filesystem paths between namespaces and resolves
// them to library sections.
//
// Both the mapping table and the section map use a longest-prefix-wins rule
// with case-insensitive comparison, so overlapping rules always resolve to the
// most specific one. Tables are immutable after construction and all lookups
// are pure functions.
package pathmap
