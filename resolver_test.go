package edinet

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const coverPage = `<?xml version="1.0" encoding="UTF-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance" xmlns:jpdei_cor="http://disclosure.edinet-fsa.go.jp/taxonomy/jpdei/2013-08-31/jpdei_cor">
  <jpdei_cor:TitleAndNameOfRepresentative contextRef="FilingDateInstant">代表取締役社長　山田太郎</jpdei_cor:TitleAndNameOfRepresentative>
  <jpdei_cor:AddressOfRegisteredHeadquarter contextRef="FilingDateInstant">東京都千代田区
      丸の内一丁目１番１号</jpdei_cor:AddressOfRegisteredHeadquarter>
  <jpdei_cor:CapitalStock contextRef="FilingDateInstant">1,000百万円</jpdei_cor:CapitalStock>
</xbrli:xbrl>`

type resolverFixture struct {
	fake     *fakeEDINET
	client   *Client
	clock    *fakeClock
	resolver *Resolver
	logs     *observer.ObservedLogs
}

func newResolverFixture(t *testing.T, opts ...ResolverOption) *resolverFixture {
	t.Helper()
	fake, srv := newFakeEDINET(t)
	client := newTestClient(srv)
	clock := newFakeClock(testToday)
	core, logs := observer.New(zap.DebugLevel)

	base := []ResolverOption{
		WithClock(clock.Now),
		WithSearchWindow(5),
		WithLogger(zap.New(core)),
	}
	return &resolverFixture{
		fake:     fake,
		client:   client,
		clock:    clock,
		resolver: NewResolver(client, append(base, opts...)...),
		logs:     logs,
	}
}

func (f *resolverFixture) publish(t *testing.T, date, docID string, files ...archiveFile) {
	f.fake.addDocument(date, DocumentMeta{
		DocID:          docID,
		DocTypeCode:    "120",
		SubmitDateTime: date + " 15:00",
		SecCode:        "99840",
	})
	f.fake.addArchive(docID, buildArchive(t, files...))
}

func TestResolver_Resolve(t *testing.T) {
	f := newResolverFixture(t)
	f.publish(t, "2025-06-19", "S100TEST",
		archiveFile{name: "XBRL/PublicDoc/manifest_PublicDoc.xml", content: "<manifest/>"},
		archiveFile{name: "XBRL/PublicDoc/jpcrp030000-asr-001.xbrl", content: coverPage},
	)

	got := f.resolver.Resolve(context.Background(), " 9984.t ", false)
	want := &CompanyInfo{
		RepresentativeName:  strPtr("山田太郎"),
		RepresentativeTitle: strPtr("代表取締役社長"),
		HeadOfficeAddress:   strPtr("東京都千代田区 丸の内一丁目１番１号"),
		CapitalStock:        strPtr("1,000百万円"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, f.logs.FilterMessage("using EDINET document").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("parsing XBRL entry").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("extracted company info").Len())
}

func TestResolver_MalformedTickerMakesNoCalls(t *testing.T) {
	f := newResolverFixture(t)

	for _, ticker := range []string{"ABC", "123", "T9984", "  "} {
		assert.Nil(t, f.resolver.Resolve(context.Background(), ticker, false), ticker)
	}
	assert.Equal(t, int64(0), f.fake.calls())
	assert.Equal(t, int64(0), f.client.Requests())

	res := f.resolver.ResolveDetailed(context.Background(), "ABC", true)
	assert.Equal(t, StageTicker, res.Stage)
	assert.True(t, errors.Is(res.Err, ErrInvalidTicker))

	// the invalid ticker is remembered
	res = f.resolver.ResolveDetailed(context.Background(), "abc", false)
	assert.True(t, res.Cached)
}

func TestResolver_EmptyTickerIsNotCached(t *testing.T) {
	f := newResolverFixture(t)
	assert.Nil(t, f.resolver.Resolve(context.Background(), "", false))
	assert.Equal(t, 0, f.resolver.Stats().CachedTickers)
	assert.Equal(t, int64(0), f.resolver.Stats().Lookups)
}

func TestResolver_IdempotentWithinTTL(t *testing.T) {
	f := newResolverFixture(t)
	f.publish(t, "2025-06-20", "S100TEST", archiveFile{name: "XBRL/PublicDoc/a.xbrl", content: coverPage})

	first := f.resolver.Resolve(context.Background(), "9984", false)
	require.NotNil(t, first)
	calls := f.fake.calls()
	require.Positive(t, calls)

	second := f.resolver.Resolve(context.Background(), "9984", false)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, f.fake.calls(), "second call must be served from cache")

	stats := f.resolver.Stats()
	assert.Equal(t, int64(2), stats.Lookups)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.Downloads)
}

func TestResolver_ForceRefreshBypassesCache(t *testing.T) {
	f := newResolverFixture(t)
	f.publish(t, "2025-06-20", "S100TEST", archiveFile{name: "XBRL/PublicDoc/a.xbrl", content: coverPage})

	require.NotNil(t, f.resolver.Resolve(context.Background(), "9984", false))
	firstAt, ok := f.resolver.CachedAt("9984")
	require.True(t, ok)
	before := f.fake.downloadCalls.Load()

	f.clock.Advance(time.Minute)
	require.NotNil(t, f.resolver.Resolve(context.Background(), "9984", true))
	assert.Equal(t, before+1, f.fake.downloadCalls.Load())

	secondAt, ok := f.resolver.CachedAt("9984")
	require.True(t, ok)
	assert.True(t, secondAt.After(firstAt))
}

func TestResolver_FailuresAreCachedAsNil(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *resolverFixture)
		stage Stage
	}{
		{
			name:  "no filing",
			setup: func(t *testing.T, f *resolverFixture) {},
			stage: StageLocate,
		},
		{
			name: "download fails",
			setup: func(t *testing.T, f *resolverFixture) {
				f.fake.addDocument("2025-06-20", DocumentMeta{DocID: "GONE", DocTypeCode: "120", SubmitDateTime: "2025-06-20 09:00", SecCode: "99840"})
			},
			stage: StageDownload,
		},
		{
			name: "no xbrl entry",
			setup: func(t *testing.T, f *resolverFixture) {
				f.publish(t, "2025-06-20", "NOXBRL", archiveFile{name: "PublicDoc/a.htm", content: "<html/>"})
			},
			stage: StageArchive,
		},
		{
			name: "malformed xml",
			setup: func(t *testing.T, f *resolverFixture) {
				f.publish(t, "2025-06-20", "BROKEN", archiveFile{name: "XBRL/PublicDoc/a.xbrl", content: "<a><b></a>"})
			},
			stage: StageParse,
		},
		{
			name: "all fields empty",
			setup: func(t *testing.T, f *resolverFixture) {
				f.publish(t, "2025-06-20", "EMPTY", archiveFile{
					name:    "XBRL/PublicDoc/a.xbrl",
					content: `<xbrli:xbrl><jpdei_cor:CapitalStock>  </jpdei_cor:CapitalStock></xbrli:xbrl>`,
				})
			},
			stage: StageExtract,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture(t)
			tt.setup(t, f)

			res := f.resolver.ResolveDetailed(context.Background(), "9984", false)
			assert.Nil(t, res.Info)
			assert.Equal(t, tt.stage, res.Stage)

			calls := f.fake.calls()
			again := f.resolver.ResolveDetailed(context.Background(), "9984", false)
			assert.Nil(t, again.Info)
			assert.True(t, again.Cached)
			assert.Equal(t, calls, f.fake.calls())
		})
	}
}

func TestResolver_CancelledContextIsNotCached(t *testing.T) {
	f := newResolverFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.resolver.ResolveDetailed(ctx, "9984", false)
	assert.Nil(t, res.Info)
	assert.Equal(t, StageLocate, res.Stage)

	_, cached := f.resolver.CachedAt("9984")
	assert.False(t, cached)
}

func TestResolver_KeepArchive(t *testing.T) {
	f := newResolverFixture(t, WithKeepArchive(true))
	f.publish(t, "2025-06-20", "S100TEST", archiveFile{name: "XBRL/PublicDoc/a.xbrl", content: coverPage})

	res := f.resolver.ResolveDetailed(context.Background(), "9984", false)
	require.NotNil(t, res.Info)
	assert.NotEmpty(t, res.Archive)
	assert.Equal(t, "XBRL/PublicDoc/a.xbrl", res.Entry)
	require.NotNil(t, res.Document)
	assert.Equal(t, "S100TEST", res.Document.DocID)
}

func TestTickerDigits(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"7203", "7203", true},
		{"7203.T", "7203", true},
		{" 72030 ", "7203", true},
		{"T7203", "", false},
		{"720", "", false},
	}
	for _, tt := range tests {
		got, ok := TickerDigits(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

// TestResolver_RealEDINET resolves a live ticker (integration test)
func TestResolver_RealEDINET(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv(SubscriptionKeyEnvVar) == "" && os.Getenv(LegacyAPIKeyEnvVar) == "" {
		t.Skip("EDINET subscription key not set")
	}

	r := NewResolver(NewClient())
	info := r.Resolve(context.Background(), "7203", false)
	require.NotNil(t, info)
	assert.NotNil(t, info.HeadOfficeAddress)
}
