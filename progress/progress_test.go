package progress_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	yaoernie "github.com/longdream/yao-ernie"
	"github.com/longdream/yao-ernie/progress"
)

func TestSessionDeliversInOrder(t *testing.T) {
	hub := progress.NewHub()
	session := hub.Open("task-1")
	events := session.Subscribe()

	go func() {
		session.PlanReady([]yaoernie.PlanStep{{ID: 1, Tool: "file_check", Description: "check file"}})
		session.StepStart(1, "file_check", "check file")
		session.StepDone(1, "file_check", "check file")
		session.Terminal(yaoernie.OutcomeDone)
	}()

	plan := gt.Cast[*progress.PlanReady](t, <-events)
	gt.Equal(t, "task-1", plan.SessionID())
	gt.Equal(t, 1, len(plan.Steps))

	start := gt.Cast[*progress.StepStart](t, <-events)
	gt.Equal(t, 1, start.StepID)
	gt.Equal(t, "file_check", start.Tool)

	gt.Cast[*progress.StepDone](t, <-events)

	terminal := gt.Cast[*progress.Terminal](t, <-events)
	gt.Equal(t, yaoernie.OutcomeDone, terminal.Outcome)

	// Channel closes after the terminal event.
	_, ok := <-events
	gt.False(t, ok)
}

func TestSessionOpenIsIdempotent(t *testing.T) {
	hub := progress.NewHub()
	a := hub.Open("task-1")
	b := hub.Open("task-1")
	gt.Equal(t, a, b)
}

func TestSessionMintsIDWhenEmpty(t *testing.T) {
	hub := progress.NewHub()
	session := hub.Open("")
	gt.NotEqual(t, "", session.ID())

	other := hub.Open("")
	gt.NotEqual(t, session.ID(), other.ID())
}

func TestSubscribeUnknownSession(t *testing.T) {
	hub := progress.NewHub()
	_, err := hub.Subscribe("never-opened")
	gt.True(t, errors.Is(err, progress.ErrSessionClosed))
}

func TestSessionRemovedAfterTerminal(t *testing.T) {
	hub := progress.NewHub()
	session := hub.Open("task-1")
	events := session.Subscribe()

	session.Terminal(yaoernie.OutcomeError)
	for range events {
	}

	_, err := hub.Subscribe("task-1")
	gt.True(t, errors.Is(err, progress.ErrSessionClosed))
}

func TestPublishWaitsForSubscriberWithinGrace(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(time.Second))
	session := hub.Open("task-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Status("starting")
	}()

	// Subscribe shortly after the producer started publishing; the event
	// must still arrive.
	time.Sleep(20 * time.Millisecond)
	events := session.Subscribe()

	status := gt.Cast[*progress.Status](t, <-events)
	gt.Equal(t, "starting", status.Message)
	<-done
}

func TestPublishDropsAfterGraceExpires(t *testing.T) {
	hub := progress.NewHub(progress.WithGrace(10 * time.Millisecond))
	session := hub.Open("task-1")

	// No subscriber: the status must be dropped once the grace expires,
	// not retained for replay.
	session.Status("missed")

	events := session.Subscribe()
	go session.Terminal(yaoernie.OutcomeDone)

	event := <-events
	gt.Cast[*progress.Terminal](t, event)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := progress.NewHub(progress.WithBuffer(1))
	session := hub.Open("task-1")
	events := session.Subscribe()

	// Nobody reads yet; only the first event fits.
	session.Status("first")
	session.Status("second")
	session.Terminal(yaoernie.OutcomeDone)

	status := gt.Cast[*progress.Status](t, <-events)
	gt.Equal(t, "first", status.Message)

	_, ok := <-events
	gt.False(t, ok)
}

func TestPublishAfterTerminalIsIgnored(t *testing.T) {
	hub := progress.NewHub()
	session := hub.Open("task-1")
	events := session.Subscribe()

	session.Terminal(yaoernie.OutcomeTimeout)
	session.Status("too late")

	terminal := gt.Cast[*progress.Terminal](t, <-events)
	gt.Equal(t, yaoernie.OutcomeTimeout, terminal.Outcome)

	_, ok := <-events
	gt.False(t, ok)
}

func TestEncodeDecode(t *testing.T) {
	cases := []struct {
		name  string
		event progress.Event
	}{
		{
			name: "plan_ready",
			event: &progress.PlanReady{
				Session: "s1",
				Steps:   []yaoernie.PlanStep{{ID: 1, Tool: "file_check", Description: "check"}},
			},
		},
		{
			name:  "step_start",
			event: &progress.StepStart{Session: "s1", StepID: 2, Tool: "file_check", Description: "check"},
		},
		{
			name:  "step_done",
			event: &progress.StepDone{Session: "s1", StepID: 2, Tool: "file_check", Description: "check"},
		},
		{
			name:  "step_error",
			event: &progress.StepError{Session: "s1", StepID: 3, Tool: "file_check", Error: "exit code 1"},
		},
		{
			name:  "status",
			event: &progress.Status{Session: "s1", Message: "working"},
		},
		{
			name:  "terminal",
			event: &progress.Terminal{Session: "s1", Outcome: yaoernie.OutcomeDone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := gt.R1(progress.Encode(tc.event)).NoError(t)
			gt.S(t, string(data)).Contains(`"kind":"` + tc.name + `"`)

			decoded := gt.R1(progress.Decode(data)).NoError(t)
			gt.Equal(t, tc.event, decoded)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := progress.Decode([]byte(`{"kind":"mystery","session_id":"s1"}`))
	gt.True(t, errors.Is(err, progress.ErrUnknownEventKind))
}
