package screener

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatflow/config"
)

// fakeMarket stands in for all three remote endpoints of a run.
type fakeMarket struct {
	directory   *httptest.Server
	quotes      *httptest.Server
	instruments *httptest.Server
}

func newFakeMarket(t *testing.T, symbols []string, floats map[string]int64, supported map[string]bool) *fakeMarket {
	t.Helper()

	m := &fakeMarket{}

	m.directory = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Symbol|Security Name\n")
		for _, s := range symbols {
			fmt.Fprintf(w, "%s|%s Corp\n", s, s)
		}
		fmt.Fprint(w, "File Creation Time: test\n")
	}))
	t.Cleanup(m.directory.Close)

	m.quotes = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		f, ok := floats[symbol]
		if !ok {
			// Ticker with no usable share count data.
			fmt.Fprintf(w, `{"shortName": "%s Corp"}`, symbol)
			return
		}
		fmt.Fprintf(w, `{"floatShares": %d, "shortName": "%s Corp", "exchange": "NMS", "marketCap": %d}`,
			f, symbol, f*10)
	}))
	t.Cleanup(m.quotes.Close)

	m.instruments = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if supported[symbol] {
			fmt.Fprintf(w, `{"results": [{"symbol": "%s"}]}`, symbol)
			return
		}
		fmt.Fprint(w, `{"results": []}`)
	}))
	t.Cleanup(m.instruments.Close)

	return m
}

func (m *fakeMarket) configure(t *testing.T, cutoff int64, eligibility bool) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Universe.Sources = []config.SymbolSource{{Name: "test", URL: m.directory.URL}}
	cfg.Enrichment.URL = m.quotes.URL
	cfg.Eligibility.URL = m.instruments.URL
	cfg.Eligibility.Enabled = eligibility
	cfg.Report.Cutoff = cutoff
	cfg.Report.Output = filepath.Join(t.TempDir(), "low_float.csv")
	cfg.Runner.MaxWorkers = 4
	return cfg
}

func runScreener(t *testing.T, cfg *config.Config) (*Result, string) {
	t.Helper()

	s := New(cfg)
	var console bytes.Buffer
	s.SetConsole(&console)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	return result, console.String()
}

func readCSV(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRunFloatFilterOnly(t *testing.T) {
	m := newFakeMarket(t,
		[]string{"AAA", "BBB", "CCC"},
		map[string]int64{"AAA": 5_000_000, "BBB": 50_000_000},
		nil,
	)
	cfg := m.configure(t, 10_000_000, false)

	result, console := runScreener(t, cfg)

	assert.Equal(t, 3, result.Symbols)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "AAA", result.Rows[0].Symbol)
	assert.Equal(t, int64(5_000_000), result.Rows[0].FloatValue())
	require.NotNil(t, result.Rows[0].ShortName)
	assert.Equal(t, "AAA Corp", *result.Rows[0].ShortName)

	lines := readCSV(t, cfg.Report.Output)
	require.Len(t, lines, 2)
	assert.Equal(t, "symbol,float,shortName,exchange,marketCap", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "AAA,5000000,AAA Corp,NMS,"))

	assert.Contains(t, console, "Found 1 tickers with float <= 10,000,000")
}

func TestRunWithEligibilityFilter(t *testing.T) {
	m := newFakeMarket(t,
		[]string{"AAA", "BBB", "CCC"},
		map[string]int64{"AAA": 5_000_000, "BBB": 50_000_000},
		map[string]bool{"AAA": false, "BBB": true},
	)
	// Raised cutoff lets both AAA and BBB through the float filter.
	cfg := m.configure(t, 60_000_000, true)

	result, _ := runScreener(t, cfg)

	assert.Equal(t, 2, result.Candidates)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "BBB", result.Rows[0].Symbol)
}

func TestRunEligibilityDisabledSkipsLookups(t *testing.T) {
	var instrumentCalls int
	m := newFakeMarket(t,
		[]string{"AAA"},
		map[string]int64{"AAA": 1_000_000},
		nil,
	)
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		instrumentCalls++
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer counting.Close()

	cfg := m.configure(t, 10_000_000, false)
	cfg.Eligibility.URL = counting.URL

	result, _ := runScreener(t, cfg)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, 0, instrumentCalls, "eligibility stage must not run when disabled")
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	m := newFakeMarket(t,
		[]string{"AAA"},
		map[string]int64{"AAA": 1_000_000},
		nil,
	)
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ACT Symbol|Name\nAAA|A Corp\n\n")
	}))
	defer second.Close()

	cfg := m.configure(t, 10_000_000, false)
	cfg.Universe.Sources = append(cfg.Universe.Sources, config.SymbolSource{Name: "other", URL: second.URL})

	result, _ := runScreener(t, cfg)

	assert.Equal(t, 1, result.Symbols)
	require.Len(t, result.Rows, 1)

	lines := readCSV(t, cfg.Report.Output)
	assert.Len(t, lines, 2, "a ticker listed in both feeds appears once")
}

func TestRunSortsOutputAscending(t *testing.T) {
	m := newFakeMarket(t,
		[]string{"AAA", "BBB", "CCC", "DDD"},
		map[string]int64{
			"AAA": 9_000_000,
			"BBB": 1_000_000,
			"CCC": 4_000_000,
			"DDD": 20_000_000,
		},
		nil,
	)
	cfg := m.configure(t, 10_000_000, false)

	result, _ := runScreener(t, cfg)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, "BBB", result.Rows[0].Symbol)
	assert.Equal(t, "CCC", result.Rows[1].Symbol)
	assert.Equal(t, "AAA", result.Rows[2].Symbol)
}

func TestRunHonorsSymbolLimit(t *testing.T) {
	m := newFakeMarket(t,
		[]string{"AAA", "BBB", "CCC"},
		map[string]int64{"AAA": 1_000, "BBB": 1_000, "CCC": 1_000},
		nil,
	)
	cfg := m.configure(t, 10_000_000, false)
	cfg.Universe.Limit = 2

	result, _ := runScreener(t, cfg)

	assert.Equal(t, 2, result.Symbols)
	assert.Len(t, result.Rows, 2)
}

func TestRunFailsWhenSourceUnavailable(t *testing.T) {
	m := newFakeMarket(t, []string{"AAA"}, map[string]int64{"AAA": 1_000}, nil)
	cfg := m.configure(t, 10_000_000, false)
	cfg.Universe.Sources = []config.SymbolSource{{Name: "down", URL: "http://127.0.0.1:1/feed"}}

	s := New(cfg)
	s.SetConsole(&bytes.Buffer{})

	_, err := s.Run(context.Background())
	require.Error(t, err)
}

func TestRunFailsOnUnwritableOutput(t *testing.T) {
	m := newFakeMarket(t, []string{"AAA"}, map[string]int64{"AAA": 1_000}, nil)
	cfg := m.configure(t, 10_000_000, false)
	cfg.Report.Output = filepath.Join(t.TempDir(), "missing", "dir", "out.csv")

	s := New(cfg)
	s.SetConsole(&bytes.Buffer{})

	_, err := s.Run(context.Background())
	require.Error(t, err)
}

func TestRunSurvivesFailingQuoteEndpoint(t *testing.T) {
	m := newFakeMarket(t, []string{"AAA", "BBB"}, map[string]int64{"AAA": 1_000}, nil)
	// BBB's lookups hit a broken endpoint via a handler that fails half the
	// time; simulate with a server that errors on BBB only.
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BBB" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"floatShares": 1000}`)
	}))
	defer broken.Close()

	cfg := m.configure(t, 10_000_000, false)
	cfg.Enrichment.URL = broken.URL

	result, _ := runScreener(t, cfg)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "AAA", result.Rows[0].Symbol)
}
