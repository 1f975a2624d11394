package core

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fallbackPattern = regexp.MustCompile(`^task-\d+-[0-9a-f]{16}$`)

func TestIDSourcePrefersSecureUUID(t *testing.T) {
	t.Parallel()

	src := defaultIDSource()
	id, degraded := src()
	require.False(t, degraded)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestIDSourceFallsBackWhenSecureSourceFails(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000123)
	src := newIDSource(
		func() (uuid.UUID, error) { return uuid.Nil, errors.New("no entropy") },
		func() time.Time { return now },
	)

	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id, degraded := src()
		require.True(t, degraded)
		require.Regexp(t, fallbackPattern, id)
		require.Contains(t, id, "task-1700000000123-")
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
	}
}
