package feed

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuifeed/internal/clock"
)

// IDSource generates unit ids.
type IDSource interface {
	NewID() string
}

// UUIDSource builds ids shaped "<ms>-<random>".
type UUIDSource struct {
	Clock clock.Clock
}

func (s UUIDSource) NewID() string {
	c := s.Clock
	if c == nil {
		c = clock.System{}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return strconv.FormatInt(c.Now().UnixMilli(), 10) + "-" + suffix
}
