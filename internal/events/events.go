// Package events defines the structured pipeline events emitted per
// extraction stage. Sinking them to logs or metrics is the transport
// layer's concern; the pipeline only depends on the Sink interface.
package events

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a pipeline stage.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// StageEvent describes one completed pipeline stage.
type StageEvent struct {
	Stage     string
	RequestID uuid.UUID
	Outcome   Outcome
	Latency   time.Duration
	Detail    string
}

// Sink receives stage events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(StageEvent)
}

// LogSink writes stage events to the standard logger.
type LogSink struct{}

func (LogSink) Emit(e StageEvent) {
	if e.Detail != "" {
		log.Printf("pipeline: [%s] stage=%s outcome=%s latency=%s detail=%q",
			e.RequestID, e.Stage, e.Outcome, e.Latency, e.Detail)
		return
	}
	log.Printf("pipeline: [%s] stage=%s outcome=%s latency=%s",
		e.RequestID, e.Stage, e.Outcome, e.Latency)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(StageEvent) {}
