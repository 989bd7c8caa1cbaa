package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Run counters for the screening pipeline. They are process-wide because a
// run is a single process invocation.
var (
	symbolsLoaded      int64
	quotesFetched      int64
	floatFound         int64
	floatMissing       int64
	eligibilityChecked int64
	eligibilityPassed  int64
	rowsReported       int64

	warns  sync.Map // map[string]*int64 keyed by component
	errors sync.Map // map[string]*int64 keyed by component
)

func bump(m *sync.Map, component string) {
	v, _ := m.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func recordWarn(component string)  { bump(&warns, component) }
func recordError(component string) { bump(&errors, component) }

// SetSymbolsLoaded records the size of the symbol universe for this run.
func SetSymbolsLoaded(n int) {
	atomic.StoreInt64(&symbolsLoaded, int64(n))
}

// IncrementQuoteFetched counts one finished enrichment lookup.
func IncrementQuoteFetched(hasFloat bool) {
	atomic.AddInt64(&quotesFetched, 1)
	if hasFloat {
		atomic.AddInt64(&floatFound, 1)
	} else {
		atomic.AddInt64(&floatMissing, 1)
	}
}

// IncrementEligibilityChecked counts one finished brokerage lookup.
func IncrementEligibilityChecked(supported bool) {
	atomic.AddInt64(&eligibilityChecked, 1)
	if supported {
		atomic.AddInt64(&eligibilityPassed, 1)
	}
}

// SetRowsReported records how many rows made it into the final report.
func SetRowsReported(n int) {
	atomic.StoreInt64(&rowsReported, int64(n))
}

// RunCounters returns a snapshot of the pipeline counters as log fields.
func RunCounters() Fields {
	warnData := map[string]int64{}
	warns.Range(func(k, v any) bool {
		warnData[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	errorData := map[string]int64{}
	errors.Range(func(k, v any) bool {
		errorData[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})

	return Fields{
		"symbols_loaded":      atomic.LoadInt64(&symbolsLoaded),
		"quotes_fetched":      atomic.LoadInt64(&quotesFetched),
		"float_found":         atomic.LoadInt64(&floatFound),
		"float_missing":       atomic.LoadInt64(&floatMissing),
		"eligibility_checked": atomic.LoadInt64(&eligibilityChecked),
		"eligibility_passed":  atomic.LoadInt64(&eligibilityPassed),
		"rows_reported":       atomic.LoadInt64(&rowsReported),
		"goroutines":          runtime.NumGoroutine(),
		"warns":               warnData,
		"errors":              errorData,
	}
}

// StartReport begins periodic logging of run statistics until the context
// is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	fields := RunCounters()
	log.WithComponent("report").WithFields(fields).Info("run report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("SymbolsLoaded"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&symbolsLoaded)))},
		{MetricName: aws.String("QuotesFetched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&quotesFetched)))},
		{MetricName: aws.String("FloatFound"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&floatFound)))},
		{MetricName: aws.String("FloatMissing"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&floatMissing)))},
		{MetricName: aws.String("EligibilityChecked"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&eligibilityChecked)))},
		{MetricName: aws.String("EligibilityPassed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&eligibilityPassed)))},
		{MetricName: aws.String("RowsReported"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&rowsReported)))},
	}
	publishMetrics(ctx, data)
}

// FinalReport logs the closing run report and pushes a last metric batch.
func FinalReport(ctx context.Context, log *Log) {
	logReport(ctx, log)
}
