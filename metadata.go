package edinet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Report is the printable outcome of one lookup
type Report struct {
	Ticker      string        `json:"ticker" yaml:"ticker"`
	Found       bool          `json:"found" yaml:"found"`
	Stage       Stage         `json:"stage" yaml:"stage"`
	Document    *DocumentMeta `json:"document,omitempty" yaml:"document,omitempty"`
	Entry       string        `json:"entry,omitempty" yaml:"entry,omitempty"`
	CompanyInfo *CompanyInfo  `json:"companyInfo" yaml:"companyInfo"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport converts a Resolution into a Report
func NewReport(res Resolution) Report {
	rep := Report{
		Ticker:      res.Ticker,
		Found:       res.Info != nil,
		Stage:       res.Stage,
		Document:    res.Document,
		Entry:       res.Entry,
		CompanyInfo: res.Info,
	}
	if res.Err != nil {
		rep.Error = res.Err.Error()
	}
	return rep
}

// FilingMetadata identifies the filing behind a lookup, for naming output files
type FilingMetadata struct {
	Ticker string
	DocID  string
}

// MetadataFor returns the naming metadata of a Resolution
func MetadataFor(res Resolution) *FilingMetadata {
	meta := &FilingMetadata{Ticker: res.Ticker}
	if res.Document != nil {
		meta.DocID = res.Document.DocID
	}
	return meta
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// GenerateFilename creates a filename based on metadata
// Format: {ticker}-{docID}_edinet.{ext}
// Falls back to {ticker}_edinet.{ext}, then edinet.{ext}
func GenerateFilename(meta *FilingMetadata, ext string) string {
	ticker := unsafeFilenameChars.ReplaceAllString(meta.Ticker, "_")
	docID := unsafeFilenameChars.ReplaceAllString(meta.DocID, "_")
	if ticker != "" && docID != "" {
		return fmt.Sprintf("%s-%s_edinet.%s", ticker, docID, ext)
	}
	if ticker != "" {
		return fmt.Sprintf("%s_edinet.%s", ticker, ext)
	}
	return fmt.Sprintf("edinet.%s", ext)
}

// SaveOptions configures how files should be saved
type SaveOptions struct {
	SaveOriginal bool
	OriginalPath string // If empty, uses smart naming
	OutputPath   string // If empty, nothing is written besides the original
	OutputDir    string // Directory for output files (default: current dir)
}

// SaveResult contains paths to saved files
type SaveResult struct {
	OriginalPath string
	OutputPath   string
}

// SaveFiles writes the downloaded ZIP package and/or the formatted output
func SaveFiles(archive []byte, output []byte, meta *FilingMetadata, opts SaveOptions) (*SaveResult, error) {
	result := &SaveResult{}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if opts.SaveOriginal {
		if len(archive) == 0 {
			return nil, fmt.Errorf("no archive was downloaded for %s", meta.Ticker)
		}
		originalPath := opts.OriginalPath
		if originalPath == "" {
			originalPath = GenerateFilename(meta, "zip")
		}
		if opts.OutputDir != "" && !filepath.IsAbs(originalPath) {
			originalPath = filepath.Join(opts.OutputDir, originalPath)
		}

		if err := os.WriteFile(originalPath, archive, 0644); err != nil {
			return nil, fmt.Errorf("failed to save original archive: %w", err)
		}
		result.OriginalPath = originalPath
	}

	if opts.OutputPath != "" {
		outputPath := opts.OutputPath
		if opts.OutputDir != "" && !filepath.IsAbs(outputPath) {
			outputPath = filepath.Join(opts.OutputDir, outputPath)
		}

		if err := os.WriteFile(outputPath, output, 0644); err != nil {
			return nil, fmt.Errorf("failed to save output: %w", err)
		}
		result.OutputPath = outputPath
	}

	return result, nil
}

// FormatJSON returns pretty-printed JSON for a single report
func FormatJSON(rep Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// FormatJSONBatch returns pretty-printed JSON for several reports
func FormatJSONBatch(reps []Report) ([]byte, error) {
	return json.MarshalIndent(reps, "", "  ")
}
