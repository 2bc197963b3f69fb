package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"legaldoc-backend/internal/documents"
)

const (
	minRiskScore = 0
	maxRiskScore = 100
)

// riskScoreSchema is the hard contract for engine output: an object with a numeric riskScore.
// Everything else is repaired leniently.
var riskScoreSchema = jsonschema.MustCompileString("analysis.json", `{
  "type": "object",
  "required": ["riskScore"],
  "properties": {
    "riskScore": {"type": "number"}
  }
}`)

// fenceMarker matches an opening fence with its optional language tag, or a
// closing fence, wherever it appears.
var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

var knownFields = map[string]bool{
	"summary":           true,
	"suspiciousClauses": true,
	"keyTerms":          true,
	"recommendations":   true,
	"riskScore":         true,
}

// Validation is the outcome of validating raw engine output.
// Repairs lists every coercion applied; empty means the output was used as-is.
type Validation struct {
	Result  documents.AnalysisResult
	Repairs []string
}

// Validate converts raw engine text into an AnalysisResult. It rejects output
// that is not a JSON object or lacks a numeric riskScore, and repairs the rest.
// AnalyzedAt is left zero.
func Validate(raw string) (Validation, error) {
	var repairs []string

	cleaned, stripped := cleanResponse(raw)
	if stripped {
		repairs = append(repairs, "surrounding text removed")
	}

	obj, err := decodeObject(cleaned)
	if err != nil {
		return Validation{}, &MalformedResponseError{Stage: StageParse, Raw: raw, Err: err}
	}
	if err := riskScoreSchema.Validate(obj); err != nil {
		return Validation{}, &MalformedResponseError{Stage: StageRiskScore, Raw: raw, Err: err}
	}

	score, scoreRepairs := normalizeRiskScore(obj["riskScore"].(float64))
	repairs = append(repairs, scoreRepairs...)

	result := documents.AnalysisResult{
		RiskScore:         score,
		SuspiciousClauses: []documents.SuspiciousClause{},
		KeyTerms:          []string{},
		Recommendations:   []string{},
	}

	if v, ok := obj["summary"]; ok {
		if s, isString := v.(string); isString {
			result.Summary = strings.TrimSpace(s)
		} else {
			repairs = append(repairs, fmt.Sprintf("summary: expected string, got %s", jsonKind(v)))
		}
	} else {
		repairs = append(repairs, "summary: missing")
	}

	clauses, clauseRepairs := normalizeClauses(obj["suspiciousClauses"])
	result.SuspiciousClauses = clauses
	repairs = append(repairs, clauseRepairs...)

	terms, termRepairs := normalizeStrings("keyTerms", obj["keyTerms"], true)
	result.KeyTerms = terms
	repairs = append(repairs, termRepairs...)

	recs, recRepairs := normalizeStrings("recommendations", obj["recommendations"], false)
	result.Recommendations = recs
	repairs = append(repairs, recRepairs...)

	var unknown []string
	for k := range obj {
		if !knownFields[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		repairs = append(repairs, fmt.Sprintf("unknown field dropped: %s", k))
	}

	return Validation{Result: result, Repairs: repairs}, nil
}

// cleanResponse strips a byte order mark, markdown code fences, and any prose
// surrounding the outermost JSON object.
func cleanResponse(raw string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff")
	s = strings.TrimSpace(s)

	if strings.Contains(s, "```") {
		s = strings.TrimSpace(fenceMarker.ReplaceAllString(s, ""))
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, false
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s, false
	}
	return s[start : end+1], true
}

func decodeObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, errors.New("empty response")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after json value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected json object, got %s", jsonKind(v))
	}
	return obj, nil
}

func normalizeRiskScore(v float64) (int, []string) {
	var repairs []string
	rounded := math.Round(v)
	if rounded != v {
		repairs = append(repairs, fmt.Sprintf("riskScore: rounded %v to %v", v, rounded))
	}
	switch {
	case rounded < minRiskScore:
		repairs = append(repairs, fmt.Sprintf("riskScore: clamped %v to %d", rounded, minRiskScore))
		return minRiskScore, repairs
	case rounded > maxRiskScore:
		repairs = append(repairs, fmt.Sprintf("riskScore: clamped %v to %d", rounded, maxRiskScore))
		return maxRiskScore, repairs
	}
	return int(rounded), repairs
}

func normalizeClauses(v any) ([]documents.SuspiciousClause, []string) {
	out := []documents.SuspiciousClause{}
	if v == nil {
		return out, []string{"suspiciousClauses: missing"}
	}
	items, ok := v.([]any)
	if !ok {
		return out, []string{fmt.Sprintf("suspiciousClauses: expected array, got %s", jsonKind(v))}
	}

	var repairs []string
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			repairs = append(repairs, fmt.Sprintf("suspiciousClauses[%d]: dropped %s element", i, jsonKind(item)))
			continue
		}
		clause := stringField(m, "clause")
		reason := stringField(m, "reason")
		if clause == "" || reason == "" {
			repairs = append(repairs, fmt.Sprintf("suspiciousClauses[%d]: dropped, clause and reason are required", i))
			continue
		}

		rawSeverity, isString := m["severity"].(string)
		severity, known := documents.ParseSeverity(rawSeverity)
		if !known {
			if isString {
				repairs = append(repairs, fmt.Sprintf("suspiciousClauses[%d]: severity %q defaulted to medium", i, rawSeverity))
			} else {
				repairs = append(repairs, fmt.Sprintf("suspiciousClauses[%d]: severity defaulted to medium", i))
			}
		}

		out = append(out, documents.SuspiciousClause{
			Clause:   clause,
			Reason:   reason,
			Severity: severity,
			Location: stringField(m, "location"),
		})
	}
	return out, repairs
}

// normalizeStrings accepts only arrays made entirely of strings; anything else
// collapses to an empty list. Blank entries are dropped.
func normalizeStrings(field string, v any, dedupe bool) ([]string, []string) {
	out := []string{}
	if v == nil {
		return out, []string{field + ": missing"}
	}
	items, ok := v.([]any)
	if !ok {
		return out, []string{fmt.Sprintf("%s: expected array, got %s", field, jsonKind(v))}
	}
	for i, item := range items {
		if _, isString := item.(string); !isString {
			return []string{}, []string{fmt.Sprintf("%s[%d]: expected string, got %s; list discarded", field, i, jsonKind(item))}
		}
	}

	var repairs []string
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := strings.TrimSpace(item.(string))
		if s == "" {
			repairs = append(repairs, field+": dropped blank entry")
			continue
		}
		if dedupe {
			if seen[s] {
				repairs = append(repairs, fmt.Sprintf("%s: dropped duplicate %q", field, s))
				continue
			}
			seen[s] = true
		}
		out = append(out, s)
	}
	return out, repairs
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
