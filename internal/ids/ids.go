// Package ids generates and validates the prefixed, time-sortable
// identifiers used throughout Lattice, plus short-ID aliases and actor
// strings.
package ids

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// Prefixes for the four ID kinds minted by the engine.
const (
	PrefixTask     = "task"
	PrefixEvent    = "ev"
	PrefixArtifact = "art"
	PrefixResource = "res"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

var idPattern = regexp.MustCompile(`^[a-z]+_[0-9A-Z]{26}$`)

// New mints a new <prefix>_<ulid26> identifier. The ULID's top 48 bits are
// the current UTC millisecond timestamp, making lexicographic order equal
// to time order.
func New(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return prefix + "_" + id.String()
}

// Validate fails with InvalidId unless s matches ^<expectedPrefix>_[0-9A-Z]{26}$
// and the ULID portion decodes to a valid 128-bit value.
func Validate(s, expectedPrefix string) error {
	want := expectedPrefix + "_"
	if !strings.HasPrefix(s, want) {
		return fmt.Errorf("%w: %q does not have prefix %q", errs.ErrInvalidID, s, want)
	}
	rest := s[len(want):]
	if len(rest) != 26 {
		return fmt.Errorf("%w: %q has wrong ULID length", errs.ErrInvalidID, s)
	}
	if !idPattern.MatchString(s) {
		return fmt.Errorf("%w: %q has invalid characters", errs.ErrInvalidID, s)
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return fmt.Errorf("%w: %q does not decode to a valid ULID: %v", errs.ErrInvalidID, s, err)
	}
	return nil
}

// Timestamp extracts the embedded creation time from a prefixed ID.
func Timestamp(s string) (time.Time, error) {
	idx := strings.IndexByte(s, '_')
	if idx < 0 {
		return time.Time{}, fmt.Errorf("%w: %q is missing a prefix separator", errs.ErrInvalidID, s)
	}
	u, err := ulid.ParseStrict(s[idx+1:])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", errs.ErrInvalidID, s, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}

var actorPattern = regexp.MustCompile(`^(agent|human|team):.+$`)

// ValidateActor fails with InvalidActor unless s matches (agent|human|team):.+
func ValidateActor(s string) error {
	if !actorPattern.MatchString(s) {
		return fmt.Errorf("%w: %q must match (agent|human|team):<identifier>", errs.ErrInvalidActor, s)
	}
	return nil
}
