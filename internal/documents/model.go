package documents

import (
	"strings"
	"time"

	"legaldoc-backend/internal/extract"
)

// Severity grades a suspicious clause.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists every severity in display order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// ParseSeverity maps raw engine output onto the enum. Unknown or empty input
// falls back to medium; ok reports whether the input was recognized.
func ParseSeverity(raw string) (sev Severity, ok bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	default:
		return SeverityMedium, false
	}
}

// SuspiciousClause is an excerpt flagged as potentially harmful to the reader.
type SuspiciousClause struct {
	Clause   string   `json:"clause"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
}

// AnalysisResult is the validated outcome of one engine run.
type AnalysisResult struct {
	Summary           string             `json:"summary"`
	SuspiciousClauses []SuspiciousClause `json:"suspiciousClauses"`
	KeyTerms          []string           `json:"keyTerms"`
	Recommendations   []string           `json:"recommendations"`
	RiskScore         int                `json:"riskScore"`
	AnalyzedAt        time.Time          `json:"analyzedAt"`
}

// Clone returns a deep copy so callers cannot mutate stored slices.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.SuspiciousClauses = append([]SuspiciousClause{}, r.SuspiciousClauses...)
	out.KeyTerms = append([]string{}, r.KeyTerms...)
	out.Recommendations = append([]string{}, r.Recommendations...)
	return out
}

// AnalysisState is derived from whether a document carries a result.
type AnalysisState string

const (
	StateUnanalyzed AnalysisState = "unanalyzed"
	StateAnalyzed   AnalysisState = "analyzed"
)

// Document is an uploaded file reduced to its extracted text.
// Analysis is nil until the first successful analysis; it is the only
// source of truth for the analysis state.
type Document struct {
	ID           string
	OriginalName string
	FileType     extract.FileType
	Content      string
	UploadedAt   time.Time
	StorageKey   string
	Analysis     *AnalysisResult
}

// State reports whether the document has been analyzed.
func (d Document) State() AnalysisState {
	if d.Analysis == nil {
		return StateUnanalyzed
	}
	return StateAnalyzed
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Analysis != nil {
		a := d.Analysis.Clone()
		out.Analysis = &a
	}
	return out
}

// Predicate selects documents for Count.
type Predicate int

const (
	PredicateAll Predicate = iota
	PredicateAnalyzed
	PredicateUnanalyzed
)

// Match reports whether doc satisfies the predicate.
func (p Predicate) Match(doc Document) bool {
	switch p {
	case PredicateAnalyzed:
		return doc.State() == StateAnalyzed
	case PredicateUnanalyzed:
		return doc.State() == StateUnanalyzed
	default:
		return true
	}
}
