package edinet

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentList(t *testing.T) {
	f, err := os.Open("testdata/documents/2025-06-18.json")
	require.NoError(t, err)
	defer f.Close()

	docs, err := ParseDocumentList(f)
	require.NoError(t, err)

	want := []DocumentMeta{
		{DocID: "S100VWVY", DocTypeCode: "120", SubmitDateTime: "2025-06-18 15:00", SecCode: "72030", EdinetCode: "E02144"},
		{DocID: "S100VWAA", DocTypeCode: "350", SubmitDateTime: "2025-06-18 16:30", SecCode: "72030", EdinetCode: "E02144"},
		{DocID: "S100VWBB", DocTypeCode: "130", SubmitDateTime: "2025-06-18 17:05", SecCode: "72030", EdinetCode: "E02144"},
		{DocID: "S100VWCC", DocTypeCode: "120", SubmitDateTime: "2025-06-18 09:00", SecCode: "67580", EdinetCode: "E01777"},
		{DocID: "S100VWDD", DocTypeCode: "030", SubmitDateTime: "2025-06-18 10:00", EdinetCode: "G01234"},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("ParseDocumentList mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDocumentList_Edges(t *testing.T) {
	docs, err := ParseDocumentList(strings.NewReader(`{"metadata":{"status":"404"}}`))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = ParseDocumentList(strings.NewReader(`{"results":[{"docID":12345,"docTypeCode":120,"submitDateTime":"x"}]}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "12345", docs[0].DocID)
	assert.Equal(t, "120", docs[0].DocTypeCode)

	_, err = ParseDocumentList(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestSecCodeMatchesTicker(t *testing.T) {
	tests := []struct {
		secCode string
		ticker  string
		want    bool
	}{
		{"72030", "7203", true},
		{"7203", "7203", true},
		{"7203-0", "7203", true},
		{"67580", "7203", false},
		{"", "7203", false},
		{"ABC", "7203", false},
		{"72030", "", false},
		{"72030", "72030", true},
		{"720301", "72030", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SecCodeMatchesTicker(tt.secCode, tt.ticker), "secCode=%q ticker=%q", tt.secCode, tt.ticker)
	}
}

func TestFilterForTickerAndLatest(t *testing.T) {
	f, err := os.Open("testdata/documents/2025-06-18.json")
	require.NoError(t, err)
	defer f.Close()
	docs, err := ParseDocumentList(f)
	require.NoError(t, err)

	matched := FilterForTicker(docs, "7203")
	require.Len(t, matched, 2, "docTypeCode 350 is not a security report")

	latest, ok := LatestSubmitted(matched)
	require.True(t, ok)
	assert.Equal(t, "S100VWBB", latest.DocID)

	_, ok = LatestSubmitted(nil)
	assert.False(t, ok)

	assert.Empty(t, FilterForTicker([]DocumentMeta{{DocID: "x", DocTypeCode: "120", SecCode: "72030"}}, "7203"),
		"entries without a submission time are skipped")
}
