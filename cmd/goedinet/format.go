package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/RxDataLab/go-edinet"
)

// formatReports renders reports as json, yaml or an aligned text table
func formatReports(reports []edinet.Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		var (
			data []byte
			err  error
		)
		if len(reports) == 1 {
			data, err = edinet.FormatJSON(reports[0])
		} else {
			data, err = edinet.FormatJSONBatch(reports)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to format JSON: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(reports)
		if err != nil {
			return nil, fmt.Errorf("failed to format YAML: %w", err)
		}
		return data, nil
	case "table":
		return []byte(renderTable(reports)), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json, yaml or table)", format)
	}
}

var tableHeader = []string{"TICKER", "TITLE", "REPRESENTATIVE", "HEAD OFFICE", "CAPITAL", "DOC ID"}

// maxCellWidth truncates long addresses so rows stay on one line
const maxCellWidth = 48

func renderTable(reports []edinet.Report) string {
	rows := [][]string{tableHeader}
	for _, rep := range reports {
		row := []string{rep.Ticker, "-", "-", "-", "-", "-"}
		if info := rep.CompanyInfo; info != nil {
			row[1] = orDash(info.RepresentativeTitle)
			row[2] = orDash(info.RepresentativeName)
			row[3] = orDash(info.HeadOfficeAddress)
			row[4] = orDash(info.CapitalStock)
		}
		if rep.Document != nil {
			row[5] = rep.Document.DocID
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			row[i] = runewidth.Truncate(cell, maxCellWidth, "…")
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
