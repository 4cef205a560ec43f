package edinet

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Document type codes for security reports (有価証券報告書, 半期報告書, 四半期報告書
// and their amendments) that carry the company profile cover page.
var TargetDocTypeCodes = map[string]bool{
	"120": true,
	"130": true,
	"140": true,
	"150": true,
	"160": true,
}

// DocumentMeta is one row of a daily EDINET filing index.
// Empty SecCode or EdinetCode means the index did not carry one.
type DocumentMeta struct {
	DocID          string `json:"docID" yaml:"docID"`
	DocTypeCode    string `json:"docTypeCode" yaml:"docTypeCode"`
	SubmitDateTime string `json:"submitDateTime" yaml:"submitDateTime"`
	SecCode        string `json:"secCode,omitempty" yaml:"secCode,omitempty"`
	EdinetCode     string `json:"edinetCode,omitempty" yaml:"edinetCode,omitempty"`
}

// ParseDocumentList parses a documents.json response body (for testing or local files).
// Rows without a docID are discarded.
func ParseDocumentList(r io.Reader) ([]DocumentMeta, error) {
	var raw struct {
		Results any `json:"results"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse EDINET documents JSON: %w", err)
	}

	items, ok := raw.Results.([]any)
	if !ok {
		return []DocumentMeta{}, nil
	}

	docs := make([]DocumentMeta, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}

		submitted := record["submitDateTime"]
		if submitted == nil {
			submitted = record["submissionDateTime"]
		}

		doc := DocumentMeta{
			DocID:          stringValue(record["docID"]),
			DocTypeCode:    stringValue(record["docTypeCode"]),
			SubmitDateTime: stringValue(submitted),
			SecCode:        stringValue(record["secCode"]),
			EdinetCode:     stringValue(record["edinetCode"]),
		}
		if doc.DocID == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// stringValue renders a decoded JSON scalar as text; null becomes ""
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// SecCodeMatchesTicker reports whether an index security code belongs to the ticker.
// Non-digits are stripped from secCode first. A 4-digit ticker matches by prefix,
// since EDINET appends a check digit (e.g. "72030" for 7203); anything else
// must match exactly.
func SecCodeMatchesTicker(secCode, tickerDigits string) bool {
	if secCode == "" || tickerDigits == "" {
		return false
	}
	normalized := digitsOnly(secCode)
	if normalized == "" {
		return false
	}
	if len(tickerDigits) == 4 {
		return strings.HasPrefix(normalized, tickerDigits)
	}
	return normalized == tickerDigits
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FilterForTicker keeps security reports filed for the ticker that carry a submission time
func FilterForTicker(docs []DocumentMeta, tickerDigits string) []DocumentMeta {
	var filtered []DocumentMeta
	for _, d := range docs {
		if !TargetDocTypeCodes[d.DocTypeCode] {
			continue
		}
		if !SecCodeMatchesTicker(d.SecCode, tickerDigits) {
			continue
		}
		if d.SubmitDateTime == "" {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// LatestSubmitted returns the document with the greatest SubmitDateTime.
// Timestamps compare as strings; EDINET formats them as "YYYY-MM-DD hh:mm".
func LatestSubmitted(docs []DocumentMeta) (DocumentMeta, bool) {
	if len(docs) == 0 {
		return DocumentMeta{}, false
	}
	latest := docs[0]
	for _, d := range docs[1:] {
		if d.SubmitDateTime > latest.SubmitDateTime {
			latest = d
		}
	}
	return latest, true
}
