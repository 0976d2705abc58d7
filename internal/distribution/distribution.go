// Package distribution spreads imported leads across executives by weight.
//
// The engine is deterministic: for the i-th row (1-based, counted across the
// whole import) every target has an ideal share i*pct/100 and the row goes to
// the target that is furthest behind that share. Ties go to the target listed
// first, so the order of the allocation list matters.
package distribution

import (
	"fmt"
	"math"
)

// sumTolerance is how far from 100 an allocation total may drift
const sumTolerance = 0.01

// Allocation is one user's share of an import, in percent
type Allocation struct {
	UserID  uint    `json:"userId"`
	Percent float64 `json:"percent"`
}

// Distributor carries the running state of one import across batches
type Distributor struct {
	allocations []Allocation
	counts      []int
	index       int
}

// NewDistributor returns a fresh accumulator. The slice is copied.
func NewDistributor(allocations []Allocation) *Distributor {
	allocs := make([]Allocation, len(allocations))
	copy(allocs, allocations)
	return &Distributor{
		allocations: allocs,
		counts:      make([]int, len(allocs)),
	}
}

// Next assigns the next row. It returns nil when there are no targets.
func (d *Distributor) Next() *uint {
	d.index++
	if len(d.allocations) == 0 {
		return nil
	}

	best := 0
	bestGap := math.Inf(-1)
	for k, a := range d.allocations {
		target := float64(d.index) * a.Percent / 100
		gap := target - float64(d.counts[k])
		if gap > bestGap {
			best, bestGap = k, gap
		}
	}

	d.counts[best]++
	id := d.allocations[best].UserID
	return &id
}

// Assign maps n rows in order and returns the assignee of each
func (d *Distributor) Assign(n int) []*uint {
	out := make([]*uint, n)
	for i := range out {
		out[i] = d.Next()
	}
	return out
}

// Rows returns how many rows have been distributed so far
func (d *Distributor) Rows() int {
	return d.index
}

// Counts returns a snapshot of rows assigned per user
func (d *Distributor) Counts() map[uint]int {
	out := make(map[uint]int, len(d.allocations))
	for k, a := range d.allocations {
		out[a.UserID] += d.counts[k]
	}
	return out
}

// Validate checks an allocation list before it is handed to the engine.
// An empty list is valid and leaves every row unassigned.
func Validate(allocations []Allocation) error {
	if len(allocations) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(allocations))
	var sum float64
	for _, a := range allocations {
		if a.UserID == 0 {
			return fmt.Errorf("allocation has no user")
		}
		if _, dup := seen[a.UserID]; dup {
			return fmt.Errorf("user %d appears more than once", a.UserID)
		}
		seen[a.UserID] = struct{}{}

		if math.IsNaN(a.Percent) || a.Percent < 0 || a.Percent > 100 {
			return fmt.Errorf("percent for user %d must be between 0 and 100, got %v", a.UserID, a.Percent)
		}
		sum += a.Percent
	}

	if math.Abs(sum-100) > sumTolerance {
		return fmt.Errorf("allocations must add up to 100, got %v", sum)
	}
	return nil
}

// UserIDs lists the users of an allocation list in order
func UserIDs(allocations []Allocation) []uint {
	ids := make([]uint, len(allocations))
	for i, a := range allocations {
		ids[i] = a.UserID
	}
	return ids
}
