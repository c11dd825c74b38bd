package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamMaterializeRequest = "stream:materialize:request"
	StreamMaterializeDone    = "stream:materialize:done"
)

// MaterializeRequest asks the worker for an immediate pipeline run.
type MaterializeRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// StageOutcome is what a pipeline stage decided for one target.
type StageOutcome string

const (
	OutcomeBuilt   StageOutcome = "built"
	OutcomeSkipped StageOutcome = "skipped"
	OutcomeFailed  StageOutcome = "failed"
)

// StageResult records one table, view or publish decision.
type StageResult struct {
	Stage   string       `json:"stage"`
	Target  string       `json:"target"`
	Outcome StageOutcome `json:"outcome"`
	Error   string       `json:"error,omitempty"`
}

// RunSummary is published when a pipeline run ends.
type RunSummary struct {
	RunID      uuid.UUID         `json:"run_id"`
	RequestID  *uuid.UUID        `json:"request_id,omitempty"`
	Trigger    string            `json:"trigger"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Stages     []StageResult     `json:"stages"`
	FlowSheets map[string]string `json:"flow_sheets,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Add appends a stage result.
func (s *RunSummary) Add(stage, target string, outcome StageOutcome, err error) {
	r := StageResult{Stage: stage, Target: target, Outcome: outcome}
	if err != nil {
		r.Error = err.Error()
	}
	s.Stages = append(s.Stages, r)
}

// Count returns how many stages ended with the outcome.
func (s *RunSummary) Count(outcome StageOutcome) int {
	n := 0
	for _, r := range s.Stages {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// StreamMessage is a raw message read from a Redis stream
type StreamMessage struct {
	ID   string
	Data string
}
