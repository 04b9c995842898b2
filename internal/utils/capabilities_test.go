package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureNoCapabilitiesRequested(t *testing.T) {
	require.NoError(t, ensure())
}
