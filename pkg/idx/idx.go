// Package idx mints and validates the ULIDs that key users, token records and
// OTP secrets.
package idx

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in its canonical 26 character form.
type ID string

var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID stamped with the current time. IDs minted in the same
// millisecond still sort in creation order.
func New() ID { return NewAt(time.Now()) }

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse accepts only canonical ULIDs. Path parameters go through here before
// they reach the store so a garbage id is a 400 rather than a 404.
func Parse(s string) (ID, error) {
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return ID(s), nil
}

func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (id ID) String() string { return string(id) }

// Time is the embedded timestamp, or the zero time when id does not parse.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
