package tui

import (
	"testing"

	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/testutil"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramSender_DropsBeforeAttach(t *testing.T) {
	var s ProgramSender
	assert.NotPanics(t, func() { s.Send(livenessMsg{}) })
}

func TestSurface_SendsPlaybackMessages(t *testing.T) {
	sender := &tuitest.Sender{}
	s := surface{sender: sender}

	step := playback.Step{Tx: testutil.Transfer("a", "b", 1, false), Stage: playback.StageReceived, Rendered: true}
	s.Clear()
	s.Render(step)

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, playbackClearMsg{}, msgs[0])
	assert.Equal(t, playbackStepMsg{step: step}, msgs[1])
}
