package generation

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDMinter hands out task ids that are unique within one generation run.
// An id has the form "<lessonID>-<runSuffix>-<n>" where n increases
// monotonically across the whole run.
type IDMinter struct {
	suffix  string
	counter atomic.Uint64
}

// NewIDMinter creates a minter with a fresh random run suffix.
func NewIDMinter() *IDMinter {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return NewIDMinterWithSuffix(suffix)
}

// NewIDMinterWithSuffix creates a minter with a fixed run suffix.
func NewIDMinterWithSuffix(suffix string) *IDMinter {
	return &IDMinter{suffix: suffix}
}

// Suffix returns the run suffix shared by every id from this minter.
func (m *IDMinter) Suffix() string {
	return m.suffix
}

// Next returns a new id owned by lessonID.
func (m *IDMinter) Next(lessonID string) string {
	n := m.counter.Add(1)
	return fmt.Sprintf("%s-%s-%d", lessonID, m.suffix, n)
}
