package analyses

import "strings"

const promptHeader = `You are a legal expert reviewing a document for a non-lawyer. Return your analysis as a single JSON object with exactly these fields:

{
  "summary": "brief summary of the document in plain, non-legal language",
  "suspiciousClauses": [
    {
      "clause": "exact text of the suspicious clause, quoted from the document",
      "reason": "why this clause is suspicious or potentially harmful",
      "severity": "low|medium|high",
      "location": "approximate location in the document"
    }
  ],
  "keyTerms": ["important", "legal", "terms", "found"],
  "recommendations": ["actionable recommendations for the reader"],
  "riskScore": 0
}

riskScore must be an integer from 0 (no risk) to 100 (extreme risk).

Focus on identifying:
1. Unfair terms or clauses
2. Hidden fees or penalties
3. Ambiguous language that could be exploited
4. Unusual liability assignments
5. Restrictive cancellation policies
6. Automatic renewal clauses
7. Indemnification clauses
8. Limitation of liability clauses
9. Arbitration clauses that may limit legal rights
10. Data privacy concerns
`

const promptFooter = `Respond with only the JSON object, no additional text.`

// BuildPrompt renders the analysis instruction for a document's extracted text.
func BuildPrompt(content string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(content) + len(promptFooter) + 64)
	b.WriteString(promptHeader)
	b.WriteString("\nDocument content:\n<<<DOCUMENT\n")
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\nDOCUMENT>>>\n\n")
	b.WriteString(promptFooter)
	return b.String()
}
