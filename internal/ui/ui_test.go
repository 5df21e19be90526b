package ui_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadadeltub/green-smart-pedal/internal/state"
	state_new "github.com/ahmadadeltub/green-smart-pedal/internal/state/new"
	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/internal/ui"
)

type mockDisplay struct {
	mu       sync.Mutex
	counts   []int
	codes    []string
	statuses []string
	prompts  int
	codeFail int
	codeErr  error
}

func (m *mockDisplay) CountChanged(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, count)
}

func (m *mockDisplay) CodeReady(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, text)
	return m.codeErr
}

func (m *mockDisplay) CodeFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeFail++
}

func (m *mockDisplay) Status(msg string, severity types.Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, severity.String()+": "+msg)
}

func (m *mockDisplay) PromptCard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts++
}

func (m *mockDisplay) lastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.counts) == 0 {
		return -1
	}
	return m.counts[len(m.counts)-1]
}

func (m *mockDisplay) snapshot() (counts []int, codes []string, statuses []string, prompts, codeFail int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.counts...), append([]string(nil), m.codes...),
		append([]string(nil), m.statuses...), m.prompts, m.codeFail
}

type mockIndicator struct {
	mu     sync.Mutex
	pulses map[types.IndicatorChannel]int
	offs   int
}

func (m *mockIndicator) Pulse(channel types.IndicatorChannel, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pulses == nil {
		m.pulses = make(map[types.IndicatorChannel]int)
	}
	m.pulses[channel]++
}

func (m *mockIndicator) Off() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offs++
}

func (m *mockIndicator) pulsed(channel types.IndicatorChannel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulses[channel]
}

type tenv struct {
	ctx     context.Context
	g       *state.Global
	ui      *ui.UI
	display *mockDisplay
	leds    *mockIndicator
	events  chan types.Event
	states  chan ui.State
}

func uiTestSetup(t testing.TB, confString string) *tenv {
	ctx, g := state_new.NewTestContext(t, "", confString)
	env := &tenv{
		ctx:     ctx,
		g:       g,
		display: &mockDisplay{},
		leds:    &mockIndicator{},
		events:  make(chan types.Event),
		states:  make(chan ui.State, 32),
	}
	env.ui = &ui.UI{
		Display:   env.display,
		Indicator: env.leds,
		Events:    env.events,
	}
	require.NoError(t, env.ui.Init(ctx))
	env.ui.XXX_testHook = func(s ui.State) { env.states <- s }
	go env.ui.Loop(ctx)
	t.Cleanup(func() {
		g.Alive.Stop()
		g.Alive.Wait()
	})
	return env
}

func (env *tenv) scan(uid string) {
	env.events <- types.Event{Kind: types.EventCard, Card: types.CardEvent{UID: uid}}
}

func (env *tenv) cancel() {
	env.events <- types.Event{Kind: types.EventCard, Card: types.CardEvent{Cancelled: true}}
}

func (env *tenv) press(key types.InputKey) {
	env.events <- types.Event{Kind: types.EventInput, Input: types.InputEvent{Source: "test", Key: key}}
}

func (env *tenv) waitState(t testing.TB, want ui.State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-env.states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for ui state=%s current=%s", want.String(), env.ui.State().String())
			return
		}
	}
}

func (env *tenv) waitPrompts(t testing.TB, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, _, _, prompts, _ := env.display.snapshot()
		if prompts >= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for prompts=%d got=%d", want, prompts)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (env *tenv) ledgerRows(t testing.TB) [][2]string {
	t.Helper()
	l, err := env.g.LedgerStore()
	require.NoError(t, err)
	rows, err := l.All()
	require.NoError(t, err)
	return rows
}

func TestSessionSeedsFromLedger(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")
	l, err := env.g.LedgerStore()
	require.NoError(t, err)
	require.NoError(t, l.Upsert("0006296170", 5))

	env.scan("0006296170")
	env.waitState(t, ui.StateActive)
	assert.Equal(t, 5, env.display.lastCount())
}

func TestSessionUnknownCardStartsAtZero(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")

	env.scan("never-seen")
	env.waitState(t, ui.StateActive)
	assert.Equal(t, 0, env.display.lastCount())
}

func TestNewCardFullCycle(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")

	env.scan("A17")
	env.waitState(t, ui.StateActive)
	for i := 0; i < 5; i++ {
		env.press(types.KeyPedal)
	}
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateRedeem)
	env.waitState(t, ui.StateAwaitCard)

	rows := env.ledgerRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, [2]string{"A17", "5"}, rows[0])

	counts, codes, _, _, _ := env.display.snapshot()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, counts)
	require.Len(t, codes, 1)
	assert.Contains(t, codes[0], "points=5")
	assert.Contains(t, codes[0], "card=A17")
	env.waitPrompts(t, 2) // boot prompt and post-reset prompt
	assert.Equal(t, 5, env.leds.pulsed(types.IndicatorPedal))
	assert.Equal(t, 1, env.leds.pulsed(types.IndicatorRedeem))
}

func TestReturningCardOverwritesRow(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")
	l, err := env.g.LedgerStore()
	require.NoError(t, err)
	require.NoError(t, l.Upsert("X1", 5))

	env.scan("X1")
	env.waitState(t, ui.StateActive)
	env.press(types.KeyPedal)
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateAwaitCard)

	rows := env.ledgerRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, [2]string{"X1", "7"}, rows[0])
}

func TestRedeemLockout(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")

	env.scan("L3")
	env.waitState(t, ui.StateActive)
	env.press(types.KeyPedal)
	env.press(types.KeyPedal)
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateRedeem)

	// pedal and redeem presses during lockout change nothing
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.press(types.KeyPedal)
	env.waitState(t, ui.StateAwaitCard)

	rows := env.ledgerRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, [2]string{"L3", "3"}, rows[0])

	counts, codes, _, _, _ := env.display.snapshot()
	assert.Equal(t, 3, counts[len(counts)-1])
	assert.Len(t, codes, 1)
}

func TestRedeemResetNotBeforeTimeout(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")

	env.scan("T9")
	env.waitState(t, ui.StateActive)
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateRedeem)
	begin := time.Now()

	// keep the queue busy while the lockout runs
	for i := 0; i < 4; i++ {
		env.press(types.KeyPedal)
		time.Sleep(100 * time.Millisecond)
	}
	env.waitState(t, ui.StateAwaitCard)
	elapsed := time.Since(begin)
	assert.True(t, elapsed >= 1*time.Second, "reset too early elapsed=%v", elapsed)
}

func TestCodeFailureStillSaves(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")
	env.display.codeErr = types.CodeGenError{Err: fmt.Errorf("encode overflow")}

	env.scan("C2")
	env.waitState(t, ui.StateActive)
	env.press(types.KeyPedal)
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateAwaitCard)

	rows := env.ledgerRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, [2]string{"C2", "2"}, rows[0])

	_, _, statuses, _, codeFail := env.display.snapshot()
	assert.Equal(t, 1, codeFail)
	assert.True(t, containsSubstring(statuses, "code failed"), "statuses=%v", statuses)
}

func TestCancelReturnsToPrompt(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, "ui { redeem_sec = 1 }")

	env.cancel()
	env.scan("after-cancel")
	env.waitState(t, ui.StateActive)

	_, _, _, prompts, _ := env.display.snapshot()
	assert.Equal(t, 2, prompts) // boot prompt and post-cancel prompt
	assert.Equal(t, 0, len(env.ledgerRows(t)))
}

func TestAnonymousKiosk(t *testing.T) {
	t.Parallel()
	env := uiTestSetup(t, `ui { redeem_sec = 1
  anonymous_card = "anonymous" }`)

	// no scan: session starts by itself on the fixed card
	env.waitState(t, ui.StateActive)
	env.press(types.KeyPedal)
	env.press(types.KeyRedeem)
	env.waitState(t, ui.StateRedeem)
	env.waitState(t, ui.StateActive) // next session opens without a prompt

	rows := env.ledgerRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, [2]string{"anonymous", "1"}, rows[0])
	_, _, _, prompts, _ := env.display.snapshot()
	assert.Equal(t, 0, prompts)
}

func containsSubstring(ss []string, sub string) bool {
	for _, s := range ss {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
