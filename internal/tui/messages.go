package tui

import (
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/playback"
	"github.com/Veraticus/chainwatch/internal/poll"
)

// Poll deliveries.
type liveDataMsg struct {
	result poll.Result[*model.LiveSnapshot]
}

type marketDataMsg struct {
	result poll.Result[*model.MarketData]
}

type statsMsg struct {
	result poll.Result[*model.DashboardStats]
}

type activityMsg struct {
	result poll.Result[model.ActivityChart]
}

type livenessMsg struct {
	at time.Time
}

// Playback surface.
type playbackClearMsg struct{}

type playbackStepMsg struct {
	step playback.Step
}

type playbackDoneMsg struct {
	report playback.Report
}

// One-shot requests.
type simulationMsg struct {
	err    error
	result *model.SimulationResult
}

type historyMsg struct {
	err     error
	history *model.SimulationHistory
}

type historyClearedMsg struct {
	err error
}

type clearedMsg struct {
	err    error
	target string
}

type summarySavedMsg struct {
	err error
}

// warningMsg reports a failed side effect without touching primary state.
type warningMsg struct {
	err error
}
