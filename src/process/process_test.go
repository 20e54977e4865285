package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecWithTimeout(t *testing.T) {
	out, _, err := New().ExecWithTimeout(context.Background(), "", nil, 10*time.Second, false, []string{"true"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out))
}

func TestExecWithTimeoutFailure(t *testing.T) {
	out, _, err := New().ExecWithTimeout(context.Background(), "", nil, 10*time.Second, false, []string{"false"})
	assert.Error(t, err)
	assert.Equal(t, 0, len(out))
}

func TestExecWithTimeoutDeadline(t *testing.T) {
	out, _, err := New().ExecWithTimeout(context.Background(), "", nil, 100*time.Millisecond, false, []string{"sleep", "10"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, len(out))
}

func TestExecWithTimeoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New().ExecWithTimeout(ctx, "", nil, 10*time.Second, false, []string{"sleep", "10"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecWithTimeoutOutput(t *testing.T) {
	out, combined, err := New().ExecWithTimeout(context.Background(), "", nil, 10*time.Second, false, []string{"bash", "-c", "echo hello"})
	assert.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
	assert.Equal(t, "hello\n", string(combined))
}

func TestExecWithTimeoutStderr(t *testing.T) {
	out, combined, err := New().ExecWithTimeout(context.Background(), "", nil, 10*time.Second, false, []string{"bash", "-c", "echo hello 1>&2"})
	assert.NoError(t, err)
	assert.Equal(t, "", string(out))
	assert.Equal(t, "hello\n", string(combined))
}

func TestExecWithTimeoutNoCommand(t *testing.T) {
	_, _, err := New().ExecWithTimeout(context.Background(), "", nil, time.Second, false, nil)
	assert.Error(t, err)
}

func TestKillSubprocesses(t *testing.T) {
	e := New()
	cmd := e.ExecCommand("sleep", "infinity")
	assert.Equal(t, 1, len(e.processes))
	err := cmd.Start()
	assert.NoError(t, err)
	e.killAll()
	err = cmd.Wait()
	assert.Error(t, err)
	e.removeProcess(cmd)
	assert.Equal(t, 0, len(e.processes))
}
