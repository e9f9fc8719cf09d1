package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/command"
)

func newTestExecutor(session Session) (*Executor, *[]time.Duration) {
	e := NewExecutor(session, 10*time.Second, zap.NewNop())
	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return e, &slept
}

func TestExecute_ClickDispatch(t *testing.T) {
	session := &fakeSession{}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{
		Type:         command.ActionClick,
		Selector:     "#search",
		SelectorKind: command.SelectorCSS,
	})

	assert.Equal(t, OutcomeContinue, result.Outcome)
	assert.Equal(t, []clickCall{{selector: "#search", kind: command.SelectorCSS, timeout: 10 * time.Second}}, session.clicks)
}

func TestExecute_ClickFailureContained(t *testing.T) {
	cause := errors.New("click intercepted")
	session := &fakeSession{clickErr: cause}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionClick, Selector: "#x"})
	assert.Equal(t, OutcomeActionFailed, result.Outcome)
	assert.ErrorIs(t, result.Reason, cause)
}

func TestExecute_TypeDispatch(t *testing.T) {
	session := &fakeSession{}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionTypeText, Text: "Seattle"})
	assert.Equal(t, OutcomeContinue, result.Outcome)
	assert.Equal(t, []string{"Seattle"}, session.typed)
}

func TestExecute_TypeWithoutFocusFails(t *testing.T) {
	session := &fakeSession{typeErr: errors.New("no element has focus")}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionTypeText, Text: "x"})
	assert.Equal(t, OutcomeActionFailed, result.Outcome)
}

func TestExecute_WaitSleepsRequestedDuration(t *testing.T) {
	session := &fakeSession{}
	e, slept := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionWait, Seconds: 2.5})
	assert.Equal(t, OutcomeContinue, result.Outcome)
	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, *slept)
}

func TestExecute_DoneTerminatesWithoutBrowserCall(t *testing.T) {
	session := &fakeSession{}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionDone})
	assert.Equal(t, OutcomeTerminate, result.Outcome)
	assert.Empty(t, session.clicks)
	assert.Empty(t, session.typed)
	assert.Zero(t, session.screenshots)
}

func TestExecute_UnrecognizedIsNoOp(t *testing.T) {
	session := &fakeSession{}
	e, _ := newTestExecutor(session)

	result := e.Execute(context.Background(), command.Action{Type: command.ActionUnrecognized})
	assert.Equal(t, OutcomeContinue, result.Outcome)
	assert.Empty(t, session.clicks)
	assert.Empty(t, session.typed)
}

func TestSleepCtx_CancelledMidWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepCtx(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
