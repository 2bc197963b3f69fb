// Package stats computes cross-document aggregates over stored analyses.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"legaldoc-backend/internal/documents"
)

// RiskStatistics summarizes risk scores over analyzed documents.
type RiskStatistics struct {
	AvgRiskScore float64 `json:"avgRiskScore"`
	MaxRiskScore int     `json:"maxRiskScore"`
	MinRiskScore int     `json:"minRiskScore"`
}

// SeverityCounts always carries every severity bucket.
type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Overview is the statistics payload.
type Overview struct {
	TotalDocuments              int            `json:"totalDocuments"`
	AnalyzedDocuments           int            `json:"analyzedDocuments"`
	PendingAnalysis             int            `json:"pendingAnalysis"`
	RiskStatistics              RiskStatistics `json:"riskStatistics"`
	SuspiciousClausesBySeverity SeverityCounts `json:"suspiciousClausesBySeverity"`
}

const defaultComputeTimeout = 30 * time.Second

// Aggregator computes Overview on demand. Concurrent callers share a single
// in-flight computation; results are never cached.
type Aggregator struct {
	Docs           documents.Repo
	ComputeTimeout time.Duration

	group singleflight.Group
}

// NewAggregator constructs an Aggregator.
func NewAggregator(docs documents.Repo) *Aggregator {
	return &Aggregator{Docs: docs, ComputeTimeout: defaultComputeTimeout}
}

// Overview returns document counts, risk-score statistics and the severity histogram.
// The shared computation is detached from any single caller; each caller stops
// waiting when its own context is done.
func (a *Aggregator) Overview(ctx context.Context) (Overview, error) {
	ch := a.group.DoChan("overview", func() (any, error) {
		timeout := a.ComputeTimeout
		if timeout <= 0 {
			timeout = defaultComputeTimeout
		}
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return a.compute(computeCtx)
	})

	select {
	case <-ctx.Done():
		return Overview{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Overview{}, res.Err
		}
		return res.Val.(Overview), nil
	}
}

// compute derives every figure from one ListAll snapshot so the counts and the
// risk statistics always describe the same set of documents.
func (a *Aggregator) compute(ctx context.Context) (Overview, error) {
	docs, err := a.Docs.ListAll(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list documents: %w", err)
	}

	out := Overview{TotalDocuments: len(docs)}

	var sum, n int
	for _, doc := range docs {
		if doc.Analysis == nil {
			continue
		}
		score := doc.Analysis.RiskScore
		if n == 0 || score > out.RiskStatistics.MaxRiskScore {
			out.RiskStatistics.MaxRiskScore = score
		}
		if n == 0 || score < out.RiskStatistics.MinRiskScore {
			out.RiskStatistics.MinRiskScore = score
		}
		sum += score
		n++

		for _, clause := range doc.Analysis.SuspiciousClauses {
			switch clause.Severity {
			case documents.SeverityLow:
				out.SuspiciousClausesBySeverity.Low++
			case documents.SeverityHigh:
				out.SuspiciousClausesBySeverity.High++
			default:
				out.SuspiciousClausesBySeverity.Medium++
			}
		}
	}
	out.AnalyzedDocuments = n
	out.PendingAnalysis = out.TotalDocuments - n
	if n > 0 {
		out.RiskStatistics.AvgRiskScore = float64(sum) / float64(n)
	}
	return out, nil
}
