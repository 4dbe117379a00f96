// Package ledger tracks which recognized regions the user has reviewed.
package ledger

import (
	"errors"
	"fmt"
)

// Status is the review state of one region.
type Status int

const (
	Unverified Status = iota
	Verified
)

func (s Status) String() string {
	if s == Verified {
		return "verified"
	}
	return "unverified"
}

// MarshalText renders the status by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrIndexOutOfRange matches every *IndexError.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports an index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0,%d)", e.Index, e.Len)
}

// Is makes errors.Is(err, ErrIndexOutOfRange) true.
func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// Ledger holds one status per region of a recognition result. It is not
// safe for concurrent use; a review session owns exactly one.
type Ledger struct {
	entries []Status
}

// New returns a ledger of n unverified entries.
func New(n int) *Ledger {
	if n < 0 {
		n = 0
	}
	return &Ledger{entries: make([]Status, n)}
}

// Len is the number of tracked regions.
func (l *Ledger) Len() int { return len(l.entries) }

func (l *Ledger) check(i int) error {
	if i < 0 || i >= len(l.entries) {
		return &IndexError{Index: i, Len: len(l.entries)}
	}
	return nil
}

// Verify marks entry i as reviewed.
func (l *Ledger) Verify(i int) error {
	if err := l.check(i); err != nil {
		return err
	}
	l.entries[i] = Verified
	return nil
}

// Unverify clears the review mark on entry i.
func (l *Ledger) Unverify(i int) error {
	if err := l.check(i); err != nil {
		return err
	}
	l.entries[i] = Unverified
	return nil
}

// Status returns the state of entry i.
func (l *Ledger) Status(i int) (Status, error) {
	if err := l.check(i); err != nil {
		return Unverified, err
	}
	return l.entries[i], nil
}

// AllVerified reports whether binding is allowed. An empty ledger is never
// complete: there is nothing to bind.
func (l *Ledger) AllVerified() bool {
	if len(l.entries) == 0 {
		return false
	}
	_, found := l.FirstUnverified()
	return !found
}

// FirstUnverified returns the lowest index still awaiting review.
func (l *Ledger) FirstUnverified() (int, bool) {
	for i, s := range l.entries {
		if s != Verified {
			return i, true
		}
	}
	return -1, false
}

// VerifiedCount returns how many entries are reviewed.
func (l *Ledger) VerifiedCount() int {
	n := 0
	for _, s := range l.entries {
		if s == Verified {
			n++
		}
	}
	return n
}

// VerifyAll marks every entry reviewed.
func (l *Ledger) VerifyAll() {
	for i := range l.entries {
		l.entries[i] = Verified
	}
}

// Reset marks every entry unverified.
func (l *Ledger) Reset() {
	for i := range l.entries {
		l.entries[i] = Unverified
	}
}
