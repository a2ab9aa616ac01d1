package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	require.NoError(t, Guard(nil, ModuleTrove))
	require.NoError(t, Guard(pauseSet{}, ""))
	require.NoError(t, Guard(pauseSet{ModuleStaking: true}, ModuleTrove))
	err := Guard(pauseSet{ModuleRedemption: true}, ModuleRedemption)
	require.ErrorIs(t, err, ErrModulePaused)
	require.Contains(t, err.Error(), ModuleRedemption)
}
