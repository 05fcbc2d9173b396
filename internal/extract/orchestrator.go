// Package extract drives one document through the extraction pipeline:
// prompt assembly, model invocation, and response parsing. Each request is
// independent; the orchestrator holds no per-request state between calls.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hoadon/internal/domain"
	"hoadon/internal/events"
	"hoadon/internal/gateway"
	"hoadon/internal/parse"
	"hoadon/internal/port"
	"hoadon/internal/prompt"
)

// Stage names emitted with pipeline events. Normalizing runs before the
// orchestrator and is emitted by the extraction service.
const (
	StageNormalizing = "normalizing"
	StagePrompting   = "prompting"
	StageInvoking    = "invoking"
	StageParsing     = "parsing"
)

// Orchestrator runs the extraction pipeline for already-normalized inputs.
type Orchestrator struct {
	gateway   *gateway.Gateway
	sink      events.Sink
	maxTokens int
}

// New creates an Orchestrator. sink may be nil to disable stage events.
func New(gw *gateway.Gateway, sink events.Sink, maxTokens int) *Orchestrator {
	if sink == nil {
		sink = events.NopSink{}
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Orchestrator{gateway: gw, sink: sink, maxTokens: maxTokens}
}

// Extract runs a single extraction request. If the model's first reply does
// not parse, the request is re-sent once with a stricter prompt before the
// malformed-output error is returned to the caller.
func (o *Orchestrator) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	start := time.Now()

	spec := o.stagePrompt(req, false)
	completion, err := o.stageInvoke(ctx, req, spec)
	if err != nil {
		return nil, err
	}

	out, parseErr := o.stageParse(req, completion.Text)
	if parseErr != nil {
		if !isMalformed(parseErr) || ctx.Err() != nil {
			return nil, parseErr
		}

		// One corrective round trip; a second malformed reply is final.
		spec = o.stagePrompt(req, true)
		completion, err = o.stageInvoke(ctx, req, spec)
		if err != nil {
			return nil, err
		}
		out, parseErr = o.stageParse(req, completion.Text)
		if parseErr != nil {
			return nil, parseErr
		}
	}

	return &domain.ExtractionResult{
		RequestID:      req.RequestID,
		DocumentType:   out.DocumentType,
		Invoice:        out.Invoice,
		Confidence:     out.Confidence,
		Partial:        out.Partial,
		Warnings:       out.Warnings,
		Model:          completion.Model,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (o *Orchestrator) stagePrompt(req domain.ExtractionRequest, strict bool) prompt.Spec {
	start := time.Now()
	var spec prompt.Spec
	if strict {
		spec = prompt.BuildStrict(req.Input, req.Type, req.AdditionalContext)
	} else {
		spec = prompt.Build(req.Input, req.Type, req.AdditionalContext)
	}
	o.emit(StagePrompting, req.RequestID, events.OutcomeOK, start, "")
	return spec
}

func (o *Orchestrator) stageInvoke(ctx context.Context, req domain.ExtractionRequest, spec prompt.Spec) (*port.Completion, error) {
	start := time.Now()
	completion, err := o.gateway.Invoke(ctx, port.CompletionRequest{
		Prompt:      spec.Text,
		Image:       req.Input.Image,
		ContentType: req.Input.ContentType,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		o.emit(StageInvoking, req.RequestID, events.OutcomeError, start, err.Error())
		return nil, err
	}
	o.emit(StageInvoking, req.RequestID, events.OutcomeOK, start, "")
	return completion, nil
}

func (o *Orchestrator) stageParse(req domain.ExtractionRequest, text string) (*parse.Output, error) {
	start := time.Now()
	out, err := parse.Parse(text, req.Type)
	if err != nil {
		o.emit(StageParsing, req.RequestID, events.OutcomeError, start, err.Error())
		return nil, err
	}
	o.emit(StageParsing, req.RequestID, events.OutcomeOK, start, "")
	return out, nil
}

func (o *Orchestrator) emit(stage string, id uuid.UUID, outcome events.Outcome, start time.Time, detail string) {
	o.sink.Emit(events.StageEvent{
		Stage:     stage,
		RequestID: id,
		Outcome:   outcome,
		Latency:   time.Since(start),
		Detail:    detail,
	})
}

func isMalformed(err error) bool {
	var exErr *domain.ExtractionError
	return errors.As(err, &exErr) && exErr.Kind == domain.ErrKindMalformedOutput
}
