package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RxDataLab/go-edinet"
)

type fakeGenerator struct {
	calls   atomic.Int64
	respond func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return g.respond(prompt)
}

func staticGenerator(text string) *fakeGenerator {
	return &fakeGenerator{respond: func(string) (string, error) { return text, nil }}
}

type fakeResolver struct {
	mu     sync.Mutex
	info   map[string]*edinet.CompanyInfo
	forced []bool
}

func (r *fakeResolver) Resolve(_ context.Context, ticker string, force bool) *edinet.CompanyInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forced = append(r.forced, force)
	return r.info[ticker]
}

type staticLogos string

func (s staticLogos) Logo(context.Context, string) string { return string(s) }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func strPtr(s string) *string { return &s }

func TestService_GetMergesCompanyInfo(t *testing.T) {
	gen := staticGenerator(sampleResponse)
	res := &fakeResolver{info: map[string]*edinet.CompanyInfo{
		"9831.T": {
			RepresentativeName:  strPtr("山田 傑"),
			RepresentativeTitle: strPtr("代表取締役社長"),
			HeadOfficeAddress:   strPtr("群馬県高崎市栄町1番1号"),
		},
	}}
	svc := NewService(Config{Generator: gen, Resolver: res, Logos: staticLogos("https://img/9831.png")})

	got, err := svc.Get(context.Background(), " 9831.T ", false)
	require.NoError(t, err)
	assert.Equal(t, "山田 傑", got.Representative)
	assert.Equal(t, "群馬県高崎市栄町1番1号", got.Location)
	assert.Equal(t, "711億円", got.Capital, "capital stays from the model when the filing has none")
	assert.Equal(t, "https://img/9831.png", got.Logo)
	require.NotNil(t, got.CompanyInfo)
	assert.Equal(t, "代表取締役社長", *got.CompanyInfo.RepresentativeTitle)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"companyInfo":{`)
}

func TestService_GetCachesWithinTTL(t *testing.T) {
	gen := staticGenerator(sampleResponse)
	res := &fakeResolver{}
	clock := &fakeClock{now: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}
	svc := NewService(Config{Generator: gen, Resolver: res, Clock: clock.Now})

	first, err := svc.Get(context.Background(), "9831.T", false)
	require.NoError(t, err)
	assert.Nil(t, first.CompanyInfo)

	second, err := svc.Get(context.Background(), "9831.T", false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), gen.calls.Load())

	_, err = svc.Get(context.Background(), "9831.T", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen.calls.Load())
	assert.Equal(t, []bool{false, true}, res.forced)

	clock.now = clock.now.Add(CacheTTL)
	_, err = svc.Get(context.Background(), "9831.T", false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen.calls.Load())
}

func TestService_GetNormalizesTicker(t *testing.T) {
	gen := staticGenerator(sampleResponse)
	svc := NewService(Config{Generator: gen})

	first, err := svc.Get(context.Background(), "9831.t", false)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), " 9831.T", false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), gen.calls.Load())
}

func TestService_GetErrors(t *testing.T) {
	_, err := NewService(Config{Generator: staticGenerator(sampleResponse)}).Get(context.Background(), "  ", false)
	assert.ErrorIs(t, err, ErrTickerRequired)

	_, err = NewService(Config{}).Get(context.Background(), "7203", false)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, "gemini API key is not configured", err.Error())

	failing := &fakeGenerator{respond: func(string) (string, error) { return "", errors.New("quota exceeded") }}
	svc := NewService(Config{Generator: failing})
	_, err = svc.Get(context.Background(), "7203", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	// failures are not cached
	_, err = svc.Get(context.Background(), "7203", false)
	require.Error(t, err)
	assert.Equal(t, int64(2), failing.calls.Load())

	_, err = NewService(Config{Generator: staticGenerator("not json")}).Get(context.Background(), "7203", false)
	assert.ErrorIs(t, err, ErrInvalidInsight)
}

func TestService_GetFillsMissingTicker(t *testing.T) {
	body := strings.Replace(sampleResponse, `"ticker": "9831.T",`, "", 1)
	svc := NewService(Config{Generator: staticGenerator(body)})
	got, err := svc.Get(context.Background(), "9831", false)
	require.NoError(t, err)
	assert.Equal(t, "9831", got.Ticker)
}

func TestService_Compare(t *testing.T) {
	gen := &fakeGenerator{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "証券コード: 0000") {
			return "", errors.New("unknown company")
		}
		return sampleResponse, nil
	}}
	svc := NewService(Config{Generator: gen, Concurrency: 2})

	results, err := svc.Compare(context.Background(), []string{"9831.T", "0000", "7419.T"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "9831.T", results[0].Ticker)
	assert.NotNil(t, results[0].Insight)
	assert.Equal(t, "0000", results[1].Ticker)
	assert.Nil(t, results[1].Insight)
	assert.Contains(t, results[1].Error, "unknown company")
	assert.NotNil(t, results[2].Insight)

	_, err = svc.Compare(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTickerRequired)
}

func TestSymbolVariations(t *testing.T) {
	assert.Equal(t, []string{"9831.T", "9831", "T:9831", "t:9831"}, SymbolVariations("9831.T"))
	assert.Equal(t, []string{"7203"}, SymbolVariations("7203"))
}

func TestFMPLogos(t *testing.T) {
	var (
		mu      sync.Mutex
		symbols []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/profile/")
		mu.Lock()
		symbols = append(symbols, symbol)
		mu.Unlock()
		assert.Equal(t, "fmp-key", r.URL.Query().Get("apikey"))

		switch symbol {
		case "9831.T":
			http.Error(w, "limit", http.StatusTooManyRequests)
		case "9831":
			_, _ = w.Write([]byte(`[{"image": "/relative.png"}]`))
		case "T:9831":
			_, _ = w.Write([]byte(`[{"image": "https://images.example/9831.png"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)

	logos := NewFMPLogos(srv.URL, "fmp-key", nil)
	assert.Equal(t, "https://images.example/9831.png", logos.Logo(context.Background(), "9831.T"))
	assert.Equal(t, []string{"9831.T", "9831", "T:9831"}, symbols)

	assert.Equal(t, "", logos.Logo(context.Background(), "1111"))
	assert.Nil(t, NewFMPLogos(srv.URL, "", nil))
}

func TestNewService_NilFMPLogos(t *testing.T) {
	svc := NewService(Config{Generator: staticGenerator(sampleResponse), Logos: NewFMPLogos("", "", nil)})
	got, err := svc.Get(context.Background(), "9831.T", false)
	require.NoError(t, err)
	assert.Empty(t, got.Logo)
}
