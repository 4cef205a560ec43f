package edinet

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// ErrNoXBRLEntry is returned when a filing package has no .xbrl or .xml file
var ErrNoXBRLEntry = errors.New("no XBRL/XML entry in archive")

var xbrlEntryPattern = regexp.MustCompile(`(?i)\.(xbrl|xml)$`)

// OpenArchive opens a downloaded filing package
func OpenArchive(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return zr, nil
}

// scoreEntry ranks archive entries; lower wins.
// Manifests list the package contents rather than the filing itself, so they
// rank last. The public document (PublicDoc) beats the auditor's report (AuditDoc).
func scoreEntry(name string) int {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "manifest") {
		return 100
	}
	if strings.Contains(lower, "/publicdoc/") {
		return 0
	}
	if strings.Contains(lower, "/auditdoc/") {
		return 1
	}
	return 2
}

// rankEntryNames sorts candidate names by score, then by name length
func rankEntryNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		si, sj := scoreEntry(names[i]), scoreEntry(names[j])
		if si != sj {
			return si < sj
		}
		return len(names[i]) < len(names[j])
	})
}

// SelectEntryName picks the best XBRL/XML entry name from a listing.
// Directory names (trailing "/") are ignored.
func SelectEntryName(names []string) (string, bool) {
	var candidates []string
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			continue
		}
		if xbrlEntryPattern.MatchString(name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	rankEntryNames(candidates)
	return candidates[0], true
}

// SelectEntry picks the archive entry holding the filing's XBRL instance
func SelectEntry(zr *zip.Reader) (*zip.File, error) {
	byName := make(map[string]*zip.File, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, seen := byName[f.Name]; seen {
			continue
		}
		byName[f.Name] = f
		names = append(names, f.Name)
	}

	name, ok := SelectEntryName(names)
	if !ok {
		return nil, ErrNoXBRLEntry
	}
	return byName[name], nil
}

// ReadEntry returns the uncompressed contents of an archive entry
func ReadEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", f.Name, err)
	}
	return data, nil
}
