package oracle

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedOracle is a Client for tests: canned responses are queued per
// task and popped in order, regardless of model.
type ScriptedOracle struct {
	mu        sync.Mutex
	responses map[string][]string
	failures  map[string]error
	calls     []Request
}

func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		responses: make(map[string][]string),
		failures:  make(map[string]error),
	}
}

// Stub queues responses for a task. Successive calls for the same task pop
// responses in order; the last response repeats once the queue drains.
func (o *ScriptedOracle) Stub(task string, responses ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses[task] = append(o.responses[task], responses...)
}

// FailWith makes every call for a task return err instead of a response.
func (o *ScriptedOracle) FailWith(task string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[task] = err
}

// ClearFailure removes a scripted failure so later calls succeed again.
func (o *ScriptedOracle) ClearFailure(task string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.failures, task)
}

func (o *ScriptedOracle) Complete(ctx context.Context, model string, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, req)

	if err, ok := o.failures[req.Task]; ok {
		return "", err
	}

	queue := o.responses[req.Task]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for task %q", req.Task)
	}
	resp := queue[0]
	if len(queue) > 1 {
		o.responses[req.Task] = queue[1:]
	}
	return resp, nil
}

// Calls returns every request seen so far, in order.
func (o *ScriptedOracle) Calls() []Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Request, len(o.calls))
	copy(out, o.calls)
	return out
}

// CallsFor returns the requests recorded for one task.
func (o *ScriptedOracle) CallsFor(task string) []Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Request
	for _, c := range o.calls {
		if c.Task == task {
			out = append(out, c)
		}
	}
	return out
}
