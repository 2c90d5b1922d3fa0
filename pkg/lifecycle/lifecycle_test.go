package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetStatus(t *testing.T) {
	status, err := targetStatus(EventCancel)
	require.NoError(t, err)
	assert.EqualValues(t, "cancelled", status)

	status, err = targetStatus(EventExpire)
	require.NoError(t, err)
	assert.EqualValues(t, "expired", status)

	_, err = targetStatus(Event("teleport"))
	assert.Error(t, err)
}
