//go:build !darwin

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/borgmon/math-alarm/pkg/logger"
)

func TestFocusHelpersOutsideMacOS(t *testing.T) {
	assert.True(t, IsAppActive())
	assert.NotPanics(t, ActivateApp)
	assert.NotPanics(t, HideDockIcon)
}

func TestQuitGuardRelease(t *testing.T) {
	g := BlockQuit(logger.Discard())
	assert.NotPanics(t, func() {
		g.Release()
		g.Release()
	})
}
