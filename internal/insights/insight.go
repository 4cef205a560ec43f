// Package insights produces AI-written investment summaries for listed
// Japanese companies and enriches them with EDINET filing data.
package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"github.com/RxDataLab/go-edinet"
)

var (
	// ErrInvalidInsight means the model output is not a usable insight object
	ErrInvalidInsight = errors.New("AI response is not a valid insight")

	// ErrEmptyResponse means the model returned no text
	ErrEmptyResponse = errors.New("AI response is empty")
)

// Insight is the per-ticker analysis served to clients
type Insight struct {
	Company        string              `json:"company"`
	Ticker         string              `json:"ticker"`
	Founded        string              `json:"founded"`
	Representative string              `json:"representative"`
	Location       string              `json:"location"`
	Capital        string              `json:"capital"`
	Strengths      []string            `json:"strengths"`
	Risks          []string            `json:"risks"`
	Outlook        []string            `json:"outlook"`
	Score          int                 `json:"score"`
	Commentary     string              `json:"commentary"`
	Logo           string              `json:"logo,omitempty"`
	CompanyInfo    *edinet.CompanyInfo `json:"companyInfo,omitempty"`
}

// rawInsight mirrors Insight with optional fields so that missing keys can be told apart
type rawInsight struct {
	Company        string   `json:"company"`
	Ticker         string   `json:"ticker"`
	Founded        string   `json:"founded"`
	Representative string   `json:"representative"`
	Location       string   `json:"location"`
	Capital        string   `json:"capital"`
	Strengths      []string `json:"strengths"`
	Risks          []string `json:"risks"`
	Outlook        []string `json:"outlook"`
	Score          *float64 `json:"score"`
	Commentary     string   `json:"commentary"`
}

// maxListItems caps strengths, risks and outlook
const maxListItems = 3

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseInsight extracts an Insight from model output. The outermost {...}
// is decoded as JSON; malformed JSON is repaired, and Hjson is the last resort.
func ParseInsight(text string) (*Insight, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	body := jsonObjectPattern.FindString(text)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidInsight)
	}

	raw, err := decodeLenient(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}
	if err := raw.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}

	score := int(math.Round(*raw.Score))
	score = max(0, min(100, score))

	return &Insight{
		Company:        raw.Company,
		Ticker:         raw.Ticker,
		Founded:        raw.Founded,
		Representative: raw.Representative,
		Location:       raw.Location,
		Capital:        raw.Capital,
		Strengths:      truncate(raw.Strengths),
		Risks:          truncate(raw.Risks),
		Outlook:        truncate(raw.Outlook),
		Score:          score,
		Commentary:     raw.Commentary,
	}, nil
}

func decodeLenient(body string) (*rawInsight, error) {
	var raw rawInsight
	if err := json.Unmarshal([]byte(body), &raw); err == nil {
		return &raw, nil
	}

	if repaired, err := jsonrepair.RepairJSON(body); err == nil {
		raw = rawInsight{}
		if err := json.Unmarshal([]byte(repaired), &raw); err == nil {
			return &raw, nil
		}
	}

	var generic map[string]any
	if err := hjson.Unmarshal([]byte(body), &generic); err != nil {
		return nil, fmt.Errorf("unparseable JSON: %w", err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	raw = rawInsight{}
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (r *rawInsight) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"company":        r.Company,
		"founded":        r.Founded,
		"representative": r.Representative,
		"location":       r.Location,
		"capital":        r.Capital,
		"commentary":     r.Commentary,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if r.Strengths == nil {
		missing = append(missing, "strengths")
	}
	if r.Risks == nil {
		missing = append(missing, "risks")
	}
	if r.Outlook == nil {
		missing = append(missing, "outlook")
	}
	if r.Score == nil {
		missing = append(missing, "score")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing fields %s", strings.Join(missing, ", "))
	}
	return nil
}

func truncate(items []string) []string {
	if len(items) > maxListItems {
		return items[:maxListItems]
	}
	return items
}

// applyCompanyInfo overrides profile fields with values read from the filing
func (in *Insight) applyCompanyInfo(info *edinet.CompanyInfo) {
	if info == nil {
		return
	}
	if info.RepresentativeName != nil {
		in.Representative = *info.RepresentativeName
	}
	if info.HeadOfficeAddress != nil {
		in.Location = *info.HeadOfficeAddress
	}
	if info.CapitalStock != nil {
		in.Capital = *info.CapitalStock
	}
	in.CompanyInfo = info
}
