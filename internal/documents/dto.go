package documents

import "time"

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message       string `json:"message"`
	DocumentID    string `json:"documentId"`
	FileName      string `json:"fileName"`
	FileType      string `json:"fileType"`
	ContentLength int    `json:"contentLength"`
}

// SummaryResponse describes a document in listings; content is omitted.
type SummaryResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	FileType     string    `json:"fileType"`
	UploadedAt   time.Time `json:"uploadedAt"`
	IsAnalyzed   bool      `json:"isAnalyzed"`
	RiskScore    *int      `json:"riskScore,omitempty"`
}

// DocumentResponse is the full outward-facing representation of a document.
type DocumentResponse struct {
	ID           string          `json:"id"`
	OriginalName string          `json:"originalName"`
	FileType     string          `json:"fileType"`
	Content      string          `json:"content"`
	UploadedAt   time.Time       `json:"uploadedAt"`
	IsAnalyzed   bool            `json:"isAnalyzed"`
	Analysis     *AnalysisResult `json:"analysis"`
}

// Pagination describes the page returned by the listing endpoint.
type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

// ListResponse is the payload of the listing endpoint.
type ListResponse struct {
	Documents  []SummaryResponse `json:"documents"`
	Pagination Pagination        `json:"pagination"`
}

func toUploadResponse(doc Document) UploadResponse {
	return UploadResponse{
		Message:       "Document uploaded successfully",
		DocumentID:    doc.ID,
		FileName:      doc.OriginalName,
		FileType:      string(doc.FileType),
		ContentLength: len(doc.Content),
	}
}

func toSummary(doc Document) SummaryResponse {
	out := SummaryResponse{
		ID:           doc.ID,
		OriginalName: doc.OriginalName,
		FileType:     string(doc.FileType),
		UploadedAt:   doc.UploadedAt,
		IsAnalyzed:   doc.State() == StateAnalyzed,
	}
	if doc.Analysis != nil {
		score := doc.Analysis.RiskScore
		out.RiskScore = &score
	}
	return out
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		OriginalName: doc.OriginalName,
		FileType:     string(doc.FileType),
		Content:      doc.Content,
		UploadedAt:   doc.UploadedAt,
		IsAnalyzed:   doc.State() == StateAnalyzed,
		Analysis:     doc.Analysis,
	}
}

func pageCount(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
