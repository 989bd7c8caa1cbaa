package universe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"floatflow/config"
	"floatflow/logger"
)

// ErrSourceUnavailable marks a symbol directory that could not be fetched.
// The universe must be complete, so this aborts the whole run.
var ErrSourceUnavailable = errors.New("symbol source unavailable")

// headerEcho is the literal first field of the directory header row; some
// feeds repeat it mid-file after maintenance windows.
const headerEcho = "Symbol"

// Loader downloads the configured symbol directories and merges them into
// one deduplicated, sorted ticker universe.
type Loader struct {
	config *config.Config
	client *http.Client
	log    *logger.Log
}

func NewLoader(cfg *config.Config) *Loader {
	log := logger.GetLogger()

	loader := &Loader{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Universe.TimeoutSec) * time.Second},
		log:    log,
	}

	log.WithComponent("universe").WithFields(logger.Fields{
		"sources": len(cfg.Universe.Sources),
		"timeout": cfg.Universe.TimeoutSec,
	}).Debug("universe loader initialized")

	return loader
}

// LoadSymbols fetches every configured directory resource and returns the
// merged ticker set, lexicographically sorted. Any source failure is fatal;
// there is no partial-source fallback.
func (l *Loader) LoadSymbols(ctx context.Context) ([]string, error) {
	log := l.log.WithComponent("universe").WithFields(logger.Fields{"operation": "load_symbols"})

	set := make(map[string]struct{})
	for _, src := range l.config.Universe.Sources {
		start := time.Now()
		count, err := l.loadSource(ctx, src, set)
		if err != nil {
			return nil, err
		}
		logger.LogPerformanceEntry(log, "universe", "fetch_directory", time.Since(start), logger.Fields{
			"source":  src.Name,
			"symbols": count,
		})
	}

	symbols := make([]string, 0, len(set))
	for s := range set {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	log.WithFields(logger.Fields{"symbols": len(symbols)}).Info("symbol universe loaded")
	return symbols, nil
}

// loadSource parses one pipe-delimited directory file into the set and
// returns how many candidate symbols it contributed.
func (l *Loader) loadSource(ctx context.Context, src config.SymbolSource, set map[string]struct{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: %s returned status %d", ErrSourceUnavailable, src.Name, resp.StatusCode)
	}

	count := 0
	first := true
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			// Header row is skipped unconditionally.
			first = false
			continue
		}
		if line == "" {
			break
		}
		if footer := l.config.Universe.FooterPrefix; footer != "" && strings.HasPrefix(line, footer) {
			break
		}
		sym := strings.TrimSpace(strings.SplitN(line, "|", 2)[0])
		if sym == "" || sym == headerEcho {
			continue
		}
		if _, dup := set[sym]; !dup {
			count++
		}
		set[sym] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}

	return count, nil
}
