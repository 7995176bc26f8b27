package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuitItemDisabledWhileRinging(t *testing.T) {
	t.Parallel()

	idle := quitItem(false, func() {})
	assert.True(t, idle.IsQuit)
	assert.False(t, idle.Disabled)

	ringing := quitItem(true, func() {})
	assert.True(t, ringing.IsQuit)
	assert.True(t, ringing.Disabled)
	assert.NotNil(t, ringing.Action, "fyne must not swap in its own quit action")
}
