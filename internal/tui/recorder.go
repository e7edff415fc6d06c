package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Recorder captures every message and rendered frame of a screen for debugging.
type Recorder struct {
	logFile  *os.File
	frameDir string
	frameNum int
}

// NewRecorder creates a recorder writing into a fresh directory under dir.
func NewRecorder(dir string) (*Recorder, error) {
	recordDir := filepath.Join(dir, fmt.Sprintf("tui-record-%d", time.Now().Unix()))
	if err := os.MkdirAll(recordDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	logPath := filepath.Join(recordDir, "tui.log")
	logFile, err := os.Create(filepath.Clean(logPath)) // #nosec G304 -- safe constructed path
	if err != nil {
		return nil, fmt.Errorf("failed to create recording log: %w", err)
	}

	r := &Recorder{
		logFile:  logFile,
		frameDir: recordDir,
	}
	r.Log("TUI Recorder started at %s", recordDir)
	return r, nil
}

// Dir returns the directory frames are written to.
func (r *Recorder) Dir() string {
	return r.frameDir
}

// Frames returns the number of frames captured so far.
func (r *Recorder) Frames() int {
	return r.frameNum
}

// Wrap returns a model that records every update of m.
func (r *Recorder) Wrap(m tea.Model) tea.Model {
	return recordingModel{inner: m, recorder: r}
}

// RecordState captures one update.
func (r *Recorder) RecordState(m tea.Model, msg tea.Msg) {
	r.frameNum++

	r.Log("\n=== Frame %d ===", r.frameNum)
	r.Log("Time: %s", time.Now().Format("15:04:05.000"))
	r.Log("Message Type: %T", msg)
	r.Log("Message: %#v", msg)

	view := m.View()
	framePath := filepath.Join(r.frameDir, fmt.Sprintf("frame-%04d.txt", r.frameNum))
	if err := os.WriteFile(framePath, []byte(view), 0600); err != nil {
		r.Log("Error saving frame: %v", err)
	}
}

// Log writes to the log file.
func (r *Recorder) Log(format string, args ...any) {
	if r.logFile == nil {
		return
	}
	if _, err := fmt.Fprintf(r.logFile, format+"\n", args...); err != nil {
		return
	}
	_ = r.logFile.Sync()
}

// Close closes the recorder.
func (r *Recorder) Close() {
	if r.logFile != nil {
		r.Log("Recording complete. %d frames captured.", r.frameNum)
		r.Log("View recording at: %s", r.frameDir)
		_ = r.logFile.Close() // Best effort close
		r.logFile = nil
	}
}

type recordingModel struct {
	inner    tea.Model
	recorder *Recorder
}

func (m recordingModel) Init() tea.Cmd {
	return m.inner.Init()
}

func (m recordingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.inner.Update(msg)
	m.inner = next
	m.recorder.RecordState(next, msg)
	return m, cmd
}

func (m recordingModel) View() string {
	return m.inner.View()
}
