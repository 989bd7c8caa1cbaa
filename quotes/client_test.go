package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"floatflow/config"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	cfg := config.Default()
	cfg.Enrichment.URL = srv.URL
	return NewClient(cfg), srv
}

func TestFetchExtractsFloatByPriority(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		// sharesOutstanding must lose to floatShares.
		w.Write([]byte(`{"floatShares": 5000000, "sharesOutstanding": 9000000,
			"shortName": "A Corp", "exchange": "NMS", "marketCap": 12500000}`))
	})
	defer srv.Close()

	rec := c.Fetch(context.Background(), "AAA")
	if !rec.HasFloat() || rec.FloatValue() != 5_000_000 {
		t.Fatalf("float = %v, want 5000000", rec.Float)
	}
	if rec.ShortName == nil || *rec.ShortName != "A Corp" {
		t.Errorf("shortName = %v, want A Corp", rec.ShortName)
	}
	if rec.Exchange == nil || *rec.Exchange != "NMS" {
		t.Errorf("exchange = %v, want NMS", rec.Exchange)
	}
	if rec.MarketCap == nil || *rec.MarketCap != 12_500_000 {
		t.Errorf("marketCap = %v, want 12500000", rec.MarketCap)
	}
}

func TestFetchFallsBackToOutstandingShares(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"floatShares": 0, "sharesOutstanding": 7000000}`))
	})
	defer srv.Close()

	rec := c.Fetch(context.Background(), "AAA")
	if rec.FloatValue() != 7_000_000 {
		t.Fatalf("float = %v, want 7000000", rec.Float)
	}
}

func TestFetchParsesStringFloat(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"floatShares": "1,250,000", "shortName": "B Corp"}`))
	})
	defer srv.Close()

	rec := c.Fetch(context.Background(), "BBB")
	if rec.FloatValue() != 1_250_000 {
		t.Fatalf("float = %v, want 1250000", rec.Float)
	}
}

func TestFetchPartialRecordWithoutFloat(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"shortName": "C Corp", "exchange": "NYQ"}`))
	})
	defer srv.Close()

	rec := c.Fetch(context.Background(), "CCC")
	if rec.HasFloat() {
		t.Fatal("expected no float")
	}
	if rec.ShortName == nil || *rec.ShortName != "C Corp" {
		t.Errorf("shortName = %v, want C Corp", rec.ShortName)
	}
}

func TestFetchDegradesOnErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"bad status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusTooManyRequests)
		}},
		{"bad body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, srv := newTestClient(tc.handler)
			defer srv.Close()

			rec := c.Fetch(context.Background(), "DDD")
			if rec.Symbol != "DDD" {
				t.Errorf("symbol = %s, want DDD", rec.Symbol)
			}
			if rec.Float != nil || rec.ShortName != nil || rec.Exchange != nil || rec.MarketCap != nil {
				t.Error("degraded record must have all optional fields nil")
			}
		})
	}
}

func TestFetchDegradesOnUnreachableEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.URL = "http://127.0.0.1:1/quote"
	cfg.Enrichment.TimeoutSec = 1

	rec := NewClient(cfg).Fetch(context.Background(), "EEE")
	if rec.HasFloat() {
		t.Fatal("expected degraded record")
	}
}
