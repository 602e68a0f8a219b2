package oracle

import (
	"sync"
	"time"
)

// Exchange is one raw oracle response kept for archival.
type Exchange struct {
	Task     string    `json:"task"`
	Model    string    `json:"model"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Recorder accumulates raw oracle exchanges for one transcript so the run
// can be audited after the fact. Safe for concurrent sessions. A nil
// recorder discards everything.
type Recorder struct {
	mu        sync.Mutex
	exchanges []Exchange
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(task, model, response string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, Exchange{
		Task:     task,
		Model:    model,
		Response: response,
		At:       time.Now().UTC(),
	})
}

// Exchanges returns a copy of everything recorded so far.
func (r *Recorder) Exchanges() []Exchange {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Exchange, len(r.exchanges))
	copy(out, r.exchanges)
	return out
}
