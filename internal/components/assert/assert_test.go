package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var nilMap map[string]int
	var nilPtr *int

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(nilMap) })
	require.Panics(t, func() { NotNil(nilPtr) })
	require.NotPanics(t, func() { NotNil(1) })
	require.NotPanics(t, func() { NotNil(map[string]int{}) })
}

func TestNotEmptyStr(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("x") })
}

func TestNonNegative(t *testing.T) {
	require.Panics(t, func() { NonNegative(-1) })
	require.NotPanics(t, func() { NonNegative(0) })
}
