package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/longdream/yao-ernie/schedule"
)

func TestArmRunsImmediately(t *testing.T) {
	started := make(chan string, 1)
	looper := schedule.New(func(ctx context.Context, prompt string) error {
		started <- prompt
		return nil
	}, schedule.WithInterval(time.Hour))

	gt.NoError(t, looper.Arm(context.Background(), "check the queue"))
	defer looper.Disarm()

	select {
	case prompt := <-started:
		gt.Equal(t, "check the queue", prompt)
	case <-time.After(time.Second):
		t.Fatal("first invocation was delayed")
	}
}

func TestDisarmDuringInvocationRunsExactlyOnce(t *testing.T) {
	var runs atomic.Int64
	inFlight := make(chan struct{})
	release := make(chan struct{})

	looper := schedule.New(func(ctx context.Context, prompt string) error {
		runs.Add(1)
		close(inFlight)
		<-release
		return nil
	}, schedule.WithInterval(time.Millisecond))

	gt.NoError(t, looper.Arm(context.Background(), "recurring check"))

	// Disarm while the first invocation is still running. It must finish,
	// and no second invocation may be scheduled.
	<-inFlight
	looper.Disarm()
	close(release)

	select {
	case <-looper.Finished():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after disarm")
	}

	time.Sleep(20 * time.Millisecond)
	gt.Equal(t, int64(1), runs.Load())
	gt.False(t, looper.Armed())
}

func TestLoopKeepsCadenceAcrossFailures(t *testing.T) {
	var runs atomic.Int64
	looper := schedule.New(func(ctx context.Context, prompt string) error {
		runs.Add(1)
		return errors.New("transient failure")
	}, schedule.WithInterval(5*time.Millisecond))

	gt.NoError(t, looper.Arm(context.Background(), "flaky check"))

	deadline := time.After(time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop stopped after an invocation failure")
		case <-time.After(time.Millisecond):
		}
	}

	looper.Disarm()
	<-looper.Finished()
}

func TestGuardSkipsRunButKeepsCadence(t *testing.T) {
	var guardChecks, runs atomic.Int64
	guard := func(ctx context.Context) bool {
		// Reject the first two boundaries, then allow.
		return guardChecks.Add(1) > 2
	}

	looper := schedule.New(func(ctx context.Context, prompt string) error {
		runs.Add(1)
		return nil
	}, schedule.WithInterval(5*time.Millisecond), schedule.WithGuard(guard))

	gt.NoError(t, looper.Arm(context.Background(), "guarded check"))

	deadline := time.After(time.Second)
	for runs.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("guarded loop never ran")
		case <-time.After(time.Millisecond):
		}
	}

	looper.Disarm()
	<-looper.Finished()

	gt.True(t, guardChecks.Load() > 2)
	gt.True(t, runs.Load() >= 1)
}

func TestArmTwiceFails(t *testing.T) {
	looper := schedule.New(func(ctx context.Context, prompt string) error {
		return nil
	}, schedule.WithInterval(time.Hour))

	gt.NoError(t, looper.Arm(context.Background(), "first"))
	defer looper.Disarm()

	err := looper.Arm(context.Background(), "second")
	gt.True(t, errors.Is(err, schedule.ErrAlreadyArmed))
}

func TestRearmAfterDisarm(t *testing.T) {
	prompts := make(chan string, 2)
	looper := schedule.New(func(ctx context.Context, prompt string) error {
		prompts <- prompt
		return nil
	}, schedule.WithInterval(time.Hour))

	ctx := context.Background()
	gt.NoError(t, looper.Arm(ctx, "first"))
	gt.Equal(t, "first", <-prompts)

	looper.Disarm()
	<-looper.Finished()

	gt.NoError(t, looper.Arm(ctx, "second"))
	defer looper.Disarm()
	gt.Equal(t, "second", <-prompts)
}

func TestContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ran := make(chan struct{}, 1)
	looper := schedule.New(func(ctx context.Context, prompt string) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, schedule.WithInterval(time.Millisecond))

	gt.NoError(t, looper.Arm(ctx, "cancellable"))
	<-ran

	cancel()
	select {
	case <-looper.Finished():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancellation")
	}
}

func TestToken(t *testing.T) {
	token := schedule.NewToken()
	gt.False(t, token.Cancelled())

	token.Cancel()
	token.Cancel() // idempotent
	gt.True(t, token.Cancelled())

	select {
	case <-token.Done():
	default:
		t.Fatal("done channel not closed after cancel")
	}
}
