package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"legaldoc-backend/internal/documents"
	"legaldoc-backend/internal/llm"
	"legaldoc-backend/internal/shared/lock"
	"legaldoc-backend/internal/shared/metrics"
	"legaldoc-backend/internal/shared/telemetry"
)

const (
	defaultEngineTimeout = 60 * time.Second
	maxLoggedRawBytes    = 2000
)

// Service runs document analyses against the reasoning engine.
// Runs on the same document are serialized through Locker; a document is
// written at most once per run and only after its output validates.
type Service struct {
	Docs          documents.Repo
	Engine        llm.Engine
	Locker        lock.Locker
	EngineTimeout time.Duration
	Now           func() time.Time

	defaultLocker     lock.Locker
	defaultLockerOnce sync.Once
}

// Outcome is the result of a run. Reused reports that the stored analysis was
// returned without calling the engine; Previous is the document's state before
// the run.
type Outcome struct {
	Result   documents.AnalysisResult
	Reused   bool
	Previous documents.AnalysisState
}

// Analyze returns the document's analysis, running the engine only when the
// document has not been analyzed yet.
func (s *Service) Analyze(ctx context.Context, documentID string) (Outcome, error) {
	return s.run(ctx, documentID, false)
}

// ReAnalyze always runs the engine and replaces any stored analysis.
func (s *Service) ReAnalyze(ctx context.Context, documentID string) (Outcome, error) {
	return s.run(ctx, documentID, true)
}

// Get returns an analyzed document; ErrNotAnalyzed when it has no analysis yet.
func (s *Service) Get(ctx context.Context, documentID string) (documents.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return documents.Document{}, documents.ErrInvalidInput
	}
	doc, err := s.Docs.FindByID(ctx, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Analysis == nil {
		return documents.Document{}, ErrNotAnalyzed
	}
	return doc, nil
}

func (s *Service) run(ctx context.Context, documentID string, force bool) (Outcome, error) {
	if strings.TrimSpace(documentID) == "" {
		return Outcome{}, documents.ErrInvalidInput
	}
	requestID := requestIDFromContext(ctx)

	release, err := s.locker().Acquire(ctx, lockKey(documentID))
	if err != nil {
		if errors.Is(err, lock.ErrContended) {
			metrics.IncAnalysisFailed("conflict")
			logStatus(documentID, requestID, "conflict", nil)
			return Outcome{}, fmt.Errorf("%w: document %s: %w", ErrConcurrencyConflict, documentID, err)
		}
		return Outcome{}, err
	}
	defer release()

	doc, err := s.Docs.FindByID(ctx, documentID)
	if err != nil {
		return Outcome{}, err
	}

	if !force && doc.Analysis != nil {
		metrics.IncAnalysisReused()
		logStatus(documentID, requestID, "reused", nil)
		return Outcome{Result: doc.Analysis.Clone(), Reused: true, Previous: documents.StateAnalyzed}, nil
	}

	from := doc.State()
	start := time.Now()
	metrics.IncAnalysisStarted()
	logStatus(documentID, requestID, "started", map[string]any{"force": force})

	raw, err := s.generate(ctx, doc)
	if err != nil {
		s.recordFailure(documentID, requestID, "external_service", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	validation, err := Validate(raw)
	if err != nil {
		fields := map[string]any{
			"document_id": documentID,
			"request_id":  requestID,
			"raw":         telemetry.Truncate(raw, maxLoggedRawBytes),
			"error":       err.Error(),
		}
		var mre *MalformedResponseError
		if errors.As(err, &mre) {
			fields["stage"] = string(mre.Stage)
		}
		telemetry.Error("analysis.malformed_response", fields)
		s.recordFailure(documentID, requestID, "malformed_response", err)
		return Outcome{}, err
	}
	if len(validation.Repairs) > 0 {
		telemetry.Warn("analysis.repair", map[string]any{
			"document_id": documentID,
			"request_id":  requestID,
			"repairs":     validation.Repairs,
		})
	}

	result := validation.Result
	result.AnalyzedAt = s.now()
	doc.Analysis = &result

	// A validated result is persisted even if the caller went away meanwhile.
	if err := s.Docs.Save(context.WithoutCancel(ctx), doc); err != nil {
		s.recordFailure(documentID, requestID, "storage", err)
		return Outcome{}, fmt.Errorf("save analysis: %w", err)
	}

	elapsed := time.Since(start)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	logStatus(documentID, requestID, string(from)+"->"+string(documents.StateAnalyzed), map[string]any{
		"risk_score":         result.RiskScore,
		"suspicious_clauses": len(result.SuspiciousClauses),
		"duration_ms":        elapsed.Milliseconds(),
	})
	return Outcome{Result: result.Clone(), Previous: from}, nil
}

func (s *Service) generate(ctx context.Context, doc documents.Document) (string, error) {
	timeout := s.EngineTimeout
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	engine := s.Engine
	if engine == nil {
		engine = llm.PlaceholderEngine{}
	}

	start := time.Now()
	raw, err := engine.Generate(callCtx, BuildPrompt(doc.Content))
	metrics.ObserveEngineCallMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) recordFailure(documentID, requestID, kind string, err error) {
	metrics.IncAnalysisFailed(kind)
	logStatus(documentID, requestID, "failed", map[string]any{
		"failure_kind": kind,
		"error":        telemetry.Truncate(err.Error(), 500),
	})
}

func (s *Service) locker() lock.Locker {
	if s.Locker != nil {
		return s.Locker
	}
	s.defaultLockerOnce.Do(func() {
		s.defaultLocker = lock.NewMemoryLocker(0)
	})
	return s.defaultLocker
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func lockKey(documentID string) string {
	return "analysis:" + documentID
}

func logStatus(documentID, requestID, transition string, extra map[string]any) {
	fields := map[string]any{
		"document_id":       documentID,
		"status_transition": transition,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.status", fields)
}
