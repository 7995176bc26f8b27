package components

import (
	"sync/atomic"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldButtonFiresAfterHold(t *testing.T) {
	test.NewTempApp(t)

	var held atomic.Int32
	b := NewHoldButton("Snooze", 150*time.Millisecond, func() { held.Add(1) })

	b.MouseDown(nil)
	assert.Eventually(t, func() bool { return held.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 1, held.Load(), "fires once per press")
}

func TestHoldButtonReleaseEarly(t *testing.T) {
	test.NewTempApp(t)

	var held atomic.Int32
	b := NewHoldButton("Snooze", 300*time.Millisecond, func() { held.Add(1) })

	b.MouseDown(nil)
	time.Sleep(50 * time.Millisecond)
	b.MouseUp(nil)

	time.Sleep(400 * time.Millisecond)
	assert.Zero(t, held.Load())
}

func TestHoldButtonDisabled(t *testing.T) {
	test.NewTempApp(t)

	var held atomic.Int32
	b := NewHoldButton("Snooze", 50*time.Millisecond, func() { held.Add(1) })
	b.Disable()

	b.MouseDown(nil)
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, held.Load())
}

func TestListManagerSelection(t *testing.T) {
	test.NewTempApp(t)

	rows := []string{"06:30", "07:00"}
	var tapped []int
	lm, box := NewListManager(ListManagerConfig{
		Len:        func() int { return len(rows) },
		RenderItem: func(i int) string { return rows[i] },
		Actions: []ListAction{
			{Label: "Add", OnTap: func(i int) { tapped = append(tapped, i) }},
			{Label: "Delete", NeedsItem: true, OnTap: func(i int) { tapped = append(tapped, i) }},
		},
	})
	require.NotNil(t, box)

	assert.Equal(t, -1, lm.Selected())
	assert.False(t, lm.buttons[0].Disabled())
	assert.True(t, lm.buttons[1].Disabled())

	lm.list.Select(1)
	assert.Equal(t, 1, lm.Selected())
	assert.False(t, lm.buttons[1].Disabled())

	test.Tap(lm.buttons[1])
	test.Tap(lm.buttons[0])
	assert.Equal(t, []int{1, 1}, tapped)

	rows = rows[:1]
	lm.Refresh()
	assert.Equal(t, -1, lm.Selected())
	assert.True(t, lm.buttons[1].Disabled())
}
