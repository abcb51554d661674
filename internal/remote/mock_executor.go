package remote

import (
	"context"
	"sync"
)

// Call records a single Execute invocation on a MockExecutor.
type Call struct {
	Host    string
	Command string
}

// MockExecutor is a mock implementation of Executor.
// ExecuteFunc decides the result; every call is recorded.
type MockExecutor struct {
	ExecuteFunc func(ctx context.Context, host, command string) (*Result, error)

	mu    sync.Mutex
	calls []Call
}

// Execute implements Executor.
func (m *MockExecutor) Execute(ctx context.Context, host, command string) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Host: host, Command: command})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, host, command)
	}
	return &Result{Host: host, Command: command}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded invocations.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears the recorded invocations.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// Succeed builds a zero-exit result.
func Succeed(host, command, stdout string) (*Result, error) {
	return &Result{Host: host, Command: command, Stdout: stdout}, nil
}

// Fail builds a non-zero exit result wrapped in a CommandError.
func Fail(host, command string, exitCode int, stderr string) (*Result, error) {
	res := &Result{Host: host, Command: command, ExitCode: exitCode, Stderr: stderr}
	return res, &CommandError{Result: res}
}
