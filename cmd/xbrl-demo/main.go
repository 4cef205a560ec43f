package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/RxDataLab/go-edinet"
)

func main() {
	// Usage
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <path-to-xbrl-or-zip>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example:\n")
		fmt.Fprintf(os.Stderr, "  %s testdata/xbrl/toyota/input.xbrl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s S100VWVY.zip\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Extracts the cover page facts from a local EDINET XBRL instance or package.\n")
		os.Exit(1)
	}

	filePath := os.Args[1]

	fmt.Fprintf(os.Stderr, "Loading: %s\n", filePath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "File size: %.2f MB\n", float64(len(data))/1024/1024)

	if strings.HasSuffix(strings.ToLower(filePath), ".zip") {
		data, err = entryFromPackage(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading package: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "Parsing...\n")
	root, err := edinet.ParseTree(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing XBRL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "✓ Parsed successfully\n")
	for _, key := range root.Keys() {
		child, _ := root.Get(key)
		fmt.Fprintf(os.Stderr, "  Root: %s (%d members)\n", key, child.Len())
	}
	fmt.Fprintf(os.Stderr, "\n")

	info := edinet.ExtractCompanyInfo(root)
	if info == nil {
		fmt.Fprintf(os.Stderr, "No cover page facts found\n")
		os.Exit(1)
	}

	fmt.Println("═══════════════════════════════════════════════════")
	fmt.Println("           Company Profile")
	fmt.Println("═══════════════════════════════════════════════════")
	printField("代表者の役職", info.RepresentativeTitle)
	printField("代表者の氏名", info.RepresentativeName)
	printField("本店の所在の場所", info.HeadOfficeAddress)
	printField("資本金", info.CapitalStock)
}

func entryFromPackage(data []byte) ([]byte, error) {
	zr, err := edinet.OpenArchive(data)
	if err != nil {
		return nil, err
	}
	entry, err := edinet.SelectEntry(zr)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Using entry: %s\n", entry.Name)
	return edinet.ReadEntry(entry)
}

func printField(label string, value *string) {
	v := "N/A"
	if value != nil {
		v = *value
	}
	fmt.Printf("%s %s\n", runewidth.FillRight(label, 20), v)
}
