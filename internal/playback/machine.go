// Package playback narrates simulated transactions one stage at a time.
package playback

import (
	"fmt"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultStepDelay separates consecutive stages and consecutive transactions.
const DefaultStepDelay = 700 * time.Millisecond

// Stage is one step of a transaction's narrative.
type Stage int

// Stages in narrative order.
const (
	StageProcessing Stage = iota
	StageReceived
	StagePaymentInfo
	StageBehaviourAnalysis
	StageHistoryDisclosure
	StageDecision
)

// StageCount is the number of stages per transaction.
const StageCount = int(StageDecision) + 1

func (s Stage) String() string {
	switch s {
	case StageProcessing:
		return "Processing"
	case StageReceived:
		return "Received"
	case StagePaymentInfo:
		return "Payment Info"
	case StageBehaviourAnalysis:
		return "Behaviour Analyzed"
	case StageHistoryDisclosure:
		return "Previous"
	case StageDecision:
		return "Decision"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Step is a single emitted stage.
type Step struct {
	Tx    model.Transaction
	Text  string
	Now   decimal.Decimal // history disclosure only
	Prev  string          // history disclosure only
	Index int
	Stage Stage
	Delay time.Duration
	// Rendered is false when the stage's slot elapses without output.
	Rendered bool
}

// Machine walks a batch stage by stage. It performs no I/O and never sleeps;
// the caller honors each Step's Delay.
type Machine struct {
	batch model.Batch
	delay time.Duration
	index int
	stage Stage
	done  bool
}

// NewMachine creates a machine positioned before the first stage of batch[0].
func NewMachine(batch model.Batch, delay time.Duration) *Machine {
	return &Machine{batch: batch, delay: delay, done: len(batch) == 0}
}

// Done reports whether every stage has been emitted.
func (m *Machine) Done() bool {
	return m.done
}

// Index returns the index of the transaction the next step belongs to.
func (m *Machine) Index() int {
	return m.index
}

// Next returns the next step, or false when the batch is exhausted.
func (m *Machine) Next() (Step, bool) {
	if m.done {
		return Step{}, false
	}

	tx := m.batch[m.index]
	step := Step{
		Index:    m.index,
		Stage:    m.stage,
		Tx:       tx,
		Delay:    m.delay,
		Rendered: true,
	}
	if m.index == 0 && m.stage == StageProcessing {
		step.Delay = 0
	}

	switch m.stage {
	case StageProcessing:
		step.Text = fmt.Sprintf("%s → %s processing...", tx.FromAccount, tx.ToAccount)
	case StageReceived:
		step.Text = fmt.Sprintf("%s received %s BTC @ $%s", tx.ToAccount, tx.Amount, tx.Price)
	case StagePaymentInfo:
		step.Text = fmt.Sprintf("%s sent %s BTC to %s", tx.FromAccount, tx.Amount, tx.ToAccount)
	case StageBehaviourAnalysis:
		step.Text = tx.Reason
	case StageHistoryDisclosure:
		if tx.HasHistoryDisclosure() {
			step.Prev, step.Now = tx.HistorySplit()
			step.Text = fmt.Sprintf("%s previous: [%s], now: %s BTC", tx.FromAccount, step.Prev, step.Now)
		} else {
			step.Rendered = false
		}
	case StageDecision:
		step.Text = tx.Verdict()
	}

	m.advance()
	return step, true
}

func (m *Machine) advance() {
	if m.stage < StageDecision {
		m.stage++
		return
	}
	m.stage = StageProcessing
	m.index++
	if m.index >= len(m.batch) {
		m.done = true
	}
}
