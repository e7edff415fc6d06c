package apitest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

const (
	liveBatchSize     = 60
	recentActivities  = 5
	chartDays         = 30
	defaultAccuracy   = 0.9
	historyTimeLayout = "2006-01-02 15:04:05"
	dateLayout        = "2006-01-02"
)

// Analysis kinds.
const (
	KindLive    = "live"
	KindTestnet = "testnet"
	KindUpload  = "upload"
)

// Email is a recorded anomaly email request.
type Email struct {
	Details string
	Count   int
}

// Upload is a recorded accepted file.
type Upload struct {
	FileName string
	Size     int64
	ID       int
}

type analysisRecord struct {
	at        time.Time
	kind      string
	id        int
	total     int
	anomalies int
	accuracy  float64
}

type activityRecord struct {
	at      time.Time
	action  string
	details string
}

// state is guarded by Server.mu.
type state struct {
	rng        *rand.Rand
	live       []map[string]any
	anomalyIdx []int
	analyses   []analysisRecord
	activities []activityRecord
	emails     []Email
	readAlerts []string
	uploads    []Upload
	accuracy   float64
	nextID     int
	fixedLive  bool
}

func newState(seed uint64) *state {
	return &state{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		accuracy: defaultAccuracy,
		nextID:   1,
	}
}

func (st *state) addAnalysis(now time.Time, kind string, total, anomalies int, accuracy float64) analysisRecord {
	rec := analysisRecord{
		at:        now,
		kind:      kind,
		id:        st.nextID,
		total:     total,
		anomalies: anomalies,
		accuracy:  accuracy,
	}
	st.nextID++
	st.analyses = append(st.analyses, rec)
	return rec
}

func (st *state) logActivity(now time.Time, action, details string) {
	st.activities = append(st.activities, activityRecord{at: now, action: action, details: details})
}

func (st *state) between(lo, hi float64, places int) float64 {
	return round(lo+st.rng.Float64()*(hi-lo), places)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (st *state) liveTrades(now time.Time) ([]map[string]any, []int) {
	if st.fixedLive {
		return st.live, st.anomalyIdx
	}
	trades := make([]map[string]any, liveBatchSize)
	var idx []int
	base := now.UnixMilli()
	for i := range trades {
		qty := st.between(0.0001, 0.5, 6)
		if st.rng.IntN(20) == 0 {
			qty = st.between(5, 25, 6)
			idx = append(idx, i)
		}
		trades[i] = map[string]any{
			"time":        base - int64(liveBatchSize-i)*350,
			"price":       st.between(63000, 65000, 2),
			"qty":         qty,
			"isBestMatch": st.rng.IntN(4) != 0,
		}
	}
	return trades, idx
}

func (st *state) userPair() (string, string) {
	from := st.rng.IntN(20) + 1
	to := st.rng.IntN(19) + 1
	if to >= from {
		to++
	}
	return fmt.Sprintf("User%d", from), fmt.Sprintf("User%d", to)
}

func pyList(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// demo returns two normal and two anomalous narrated transactions.
func (st *state) demo() []map[string]any {
	out := make([]map[string]any, 0, 4)
	for range 2 {
		from, to := st.userPair()
		history := []float64{st.between(0.1, 1.5, 4), st.between(0.1, 1.5, 4), st.between(0.1, 1.5, 4)}
		out = append(out, map[string]any{
			"from_account":   from,
			"to_account":     to,
			"amount":         st.between(0.1, 1.5, 4),
			"price":          st.between(30000, 70000, 2),
			"is_anomaly":     0,
			"model_decision": "Normal",
			"reason":         "Within normal range",
			"history":        history,
		})
	}
	for range 2 {
		from, to := st.userPair()
		history := []float64{st.between(0.1, 0.5, 4), st.between(0.1, 0.5, 4), st.between(0.1, 0.5, 4)}
		amount := st.between(5, 10, 4)
		out = append(out, map[string]any{
			"from_account":   from,
			"to_account":     to,
			"amount":         amount,
			"price":          st.between(30000, 70000, 2),
			"is_anomaly":     1,
			"model_decision": "Anomaly",
			"reason":         fmt.Sprintf("Sudden spike: previous %s, now %v", pyList(history), amount),
			"history":        append(history, amount),
		})
	}
	st.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (st *state) testnetRuns() []analysisRecord {
	var runs []analysisRecord
	for _, a := range st.analyses {
		if a.kind == KindTestnet {
			runs = append(runs, a)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].id > runs[j].id })
	return runs
}

func (st *state) chart(now time.Time) map[string]map[string]int {
	chart := make(map[string]map[string]int, chartDays)
	for i := chartDays - 1; i >= 0; i-- {
		chart[now.AddDate(0, 0, -i).Format(dateLayout)] = map[string]int{"analyses": 0, "anomalies": 0}
	}
	for _, a := range st.analyses {
		day, ok := chart[a.at.Format(dateLayout)]
		if !ok {
			continue
		}
		day["analyses"]++
		day["anomalies"] += a.anomalies
	}
	return chart
}

func ticker(rng *rand.Rand) map[string]any {
	last := 63000 + rng.Float64()*2000
	return map[string]any{
		"symbol":             "BTCUSDT",
		"lastPrice":          fmt.Sprintf("%.2f", last),
		"priceChangePercent": fmt.Sprintf("%.3f", rng.Float64()*6-3),
		"volume":             fmt.Sprintf("%.5f", 10000+rng.Float64()*5000),
	}
}

// klines returns 24 hourly candles in Binance's array row form.
func klines(rng *rand.Rand, now time.Time) [][]any {
	rows := make([][]any, 24)
	start := now.Truncate(time.Hour).Add(-23 * time.Hour)
	price := 63000 + rng.Float64()*1000
	for i := range rows {
		open := price
		closePrice := open + rng.Float64()*400 - 200
		high := math.Max(open, closePrice) + rng.Float64()*100
		low := math.Min(open, closePrice) - rng.Float64()*100
		openTime := start.Add(time.Duration(i) * time.Hour)
		rows[i] = []any{
			openTime.UnixMilli(),
			fmt.Sprintf("%.2f", open),
			fmt.Sprintf("%.2f", high),
			fmt.Sprintf("%.2f", low),
			fmt.Sprintf("%.2f", closePrice),
			fmt.Sprintf("%.5f", 100+rng.Float64()*400),
			openTime.Add(time.Hour - time.Millisecond).UnixMilli(),
		}
		price = closePrice
	}
	return rows
}
