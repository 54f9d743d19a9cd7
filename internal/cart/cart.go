// Package cart implements the in-memory shopping cart store.
package cart

import (
	"fmt"
	"sync"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

// ValidationError reports a rejected cart mutation, such as a bad quantity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

type lineKey struct {
	productID string
	optionID  string
}

// Store is an ordered collection of cart lines keyed by (product, option).
// Lines keep their insertion order; adding an already-present pair merges
// into the existing line instead of appending.
type Store struct {
	mu    sync.Mutex
	lines []model.CartLine
	index map[lineKey]int
}

// New creates an empty Store.
func New() *Store {
	return &Store{index: make(map[lineKey]int)}
}

// AddOrMerge inserts a line built from the given snapshot, or merges the
// quantity into an existing line for the same (product, option) pair.
//
// The merged quantity is deliberately not re-checked against MaxQuantity;
// the ceiling applies to each add, not to the accumulated line. See the
// matching test for the documented behavior. A non-positive MaxQuantity
// means the line carries no ceiling at all: every option fetched from the
// catalog has a real max, so this only happens for lines injected directly,
// and those are capped by nothing but the quantity >= 1 rule.
func (s *Store) AddOrMerge(line model.CartLine) error {
	if line.Quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	if line.MaxQuantity > 0 && line.Quantity > line.MaxQuantity {
		return &ValidationError{Field: "quantity", Message: fmt.Sprintf("exceeds maximum of %d", line.MaxQuantity)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := lineKey{productID: line.ProductID, optionID: line.OptionID}
	if i, ok := s.index[k]; ok {
		s.lines[i].Quantity += line.Quantity
		return nil
	}
	s.index[k] = len(s.lines)
	s.lines = append(s.lines, line)
	return nil
}

// Remove deletes the line at the given index, preserving the relative order
// of the rest. Out-of-range indexes are a no-op.
func (s *Store) Remove(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lines) {
		return
	}
	removed := s.lines[i]
	delete(s.index, lineKey{productID: removed.ProductID, optionID: removed.OptionID})
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	for j := i; j < len(s.lines); j++ {
		s.index[lineKey{productID: s.lines[j].ProductID, optionID: s.lines[j].OptionID}] = j
	}
}

// Total returns the sum of unit price times quantity over all lines.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.lines {
		total += l.Subtotal()
	}
	return total
}

// Clear empties the cart. Used after a successful order submission.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.index = make(map[lineKey]int)
}

// Lines returns a snapshot of the current lines in insertion order.
func (s *Store) Lines() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}
