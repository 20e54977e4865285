// Package process implements generic subprocess management functions.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/cli"
)

var log = logging.MustGetLogger("process")

// An Executor handles starting, running and monitoring a set of subprocesses.
// It registers as a signal handler to attempt to terminate them all at process exit.
type Executor struct {
	processes map[*exec.Cmd]struct{}
	mutex     sync.Mutex
}

// New returns a new Executor.
func New() *Executor {
	e := &Executor{
		processes: map[*exec.Cmd]struct{}{},
	}
	cli.AtExit(e.killAll) // Kill any subprocess if we are ourselves killed
	return e
}

// ExecWithTimeout runs an external command until it completes, the timeout expires or the
// context is cancelled, whichever happens first.
// If the command times out the returned error will be a context.DeadlineExceeded error.
// If showOutput is true then output will be printed to stderr as well as returned.
// It returns the stdout only, combined stdout and stderr and any error that occurred.
func (e *Executor) ExecWithTimeout(ctx context.Context, dir string, env []string, timeout time.Duration, showOutput bool, argv []string) ([]byte, []byte, error) {
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("no command given")
	}
	// We deliberately don't attach this context to the command, so we have better
	// control over how the process gets terminated.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := e.ExecCommand(argv[0], argv[1:]...)
	defer e.removeProcess(cmd)
	cmd.Dir = dir
	cmd.Env = env

	var out bytes.Buffer
	var outerr safeBuffer
	if showOutput {
		cmd.Stdout = io.MultiWriter(os.Stderr, &out, &outerr)
		cmd.Stderr = io.MultiWriter(os.Stderr, &outerr)
	} else {
		cmd.Stdout = io.MultiWriter(&out, &outerr)
		cmd.Stderr = &outerr
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	ch := make(chan error, 1)
	go func() {
		ch <- cmd.Wait()
	}()
	select {
	case err := <-ch:
		return out.Bytes(), outerr.Bytes(), err
	case <-ctx.Done():
		e.terminate(cmd, ch)
		return out.Bytes(), outerr.Bytes(), ctx.Err()
	}
}

// terminate kills a running process, attempting to send it a SIGTERM first followed by a
// SIGKILL shortly after if it hasn't exited. done receives the result of waiting on it.
func (e *Executor) terminate(cmd *exec.Cmd, done <-chan error) {
	if !signalGroup(cmd, syscall.SIGTERM) {
		return
	}
	select {
	case <-done:
	case <-time.After(30 * time.Millisecond):
		signalGroup(cmd, syscall.SIGKILL)
		<-done
	}
}

// signalGroup sends a signal to the process group of the given command.
// It returns false if the process was never started.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) bool {
	if cmd.Process == nil {
		log.Debug("Not signalling process, it seems to have not started yet")
		return false
	}
	// Signal the whole group; we always set one in ExecCommand.
	log.Debug("Sending signal %s to -%d", sig, cmd.Process.Pid)
	syscall.Kill(-cmd.Process.Pid, sig)
	return true
}

func (e *Executor) registerProcess(cmd *exec.Cmd) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.processes[cmd] = struct{}{}
}

func (e *Executor) removeProcess(cmd *exec.Cmd) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.processes, cmd)
}

// killAll kills all subprocesses of this executor.
func (e *Executor) killAll() {
	e.mutex.Lock()
	processes := make([]*exec.Cmd, 0, len(e.processes))
	for proc := range e.processes {
		processes = append(processes, proc)
	}
	e.mutex.Unlock()
	for _, proc := range processes {
		signalGroup(proc, syscall.SIGKILL)
	}
}

// safeBuffer is an io.Writer that ensures that only one thread writes to it at a time.
// This is important because we potentially have both stdout and stderr writing to the same
// buffer, and os.exec only guarantees goroutine-safety if both are the same writer, which in
// our case they're not (but are both ultimately causing writes to the same buffer)
type safeBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (sb *safeBuffer) Write(b []byte) (int, error) {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.Write(b)
}

func (sb *safeBuffer) Bytes() []byte {
	return sb.buf.Bytes()
}
