package apitest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/chainwatch/internal/model"
)

// SetLive pins the live-data response to trades with the given flagged indices.
func (s *Server) SetLive(trades []map[string]any, anomalyIndices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.live = trades
	s.state.anomalyIdx = anomalyIndices
	s.state.fixedLive = true
}

// SetAccuracy sets the accuracy score reported by analyses.
func (s *Server) SetAccuracy(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accuracy = score
}

// Emails returns the anomaly emails requested so far.
func (s *Server) Emails() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.state.emails...)
}

// ReadAlerts returns the alert ids marked read.
func (s *Server) ReadAlerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.readAlerts...)
}

// Uploads returns the accepted uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.state.uploads...)
}

func (s *Server) handleActivity(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	chart := s.state.chart(s.now())
	s.mu.Unlock()

	OK(w, map[string]any{"chart_data": chart})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalAnomalies := 0
	for _, a := range s.state.analyses {
		totalAnomalies += a.anomalies
	}

	recent := make([]map[string]any, 0, recentActivities)
	for i := len(s.state.activities) - 1; i >= 0 && len(recent) < recentActivities; i-- {
		act := s.state.activities[i]
		recent = append(recent, map[string]any{
			"action":    act.action,
			"timestamp": act.at.Format(historyTimeLayout),
			"details":   act.details,
		})
	}

	OK(w, map[string]any{
		"stats": map[string]any{
			"total_analyses":    len(s.state.analyses),
			"total_anomalies":   totalAnomalies,
			"recent_activities": recent,
		},
	})
}

func (s *Server) handleAlertRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	s.state.readAlerts = append(s.state.readAlerts, id)
	s.mu.Unlock()

	OK(w, nil)
}

func (s *Server) handleClearAnalyses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.state.analyses = nil
	s.mu.Unlock()

	OK(w, nil)
}

func (s *Server) handleClearActivity(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.state.activities = nil
	s.mu.Unlock()

	OK(w, nil)
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Details      string `json:"details"`
		AnomalyCount int    `json:"anomaly_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	if body.AnomalyCount == 0 {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Missing anomaly count"})
		return
	}

	s.mu.Lock()
	s.state.emails = append(s.state.emails, Email{Count: body.AnomalyCount, Details: body.Details})
	s.mu.Unlock()

	OK(w, nil)
}

func (s *Server) handleLiveData(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	trades, idx := s.state.liveTrades(now)
	if idx == nil {
		idx = []int{}
	}
	rec := s.state.addAnalysis(now, KindLive, len(trades), len(idx), s.state.accuracy)
	s.state.logActivity(now, "Live Analysis", fmt.Sprintf("Analyzed %d live transactions", len(trades)))

	OK(w, map[string]any{
		"data": map[string]any{
			"total_transactions": len(trades),
			"anomalies_detected": len(idx),
			"accuracy_score":     s.state.accuracy,
			"anomaly_indices":    idx,
		},
		"trades":      trades,
		"analysis_id": rec.id,
	})
}

func (s *Server) handleMarketData(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	JSON(w, http.StatusOK, map[string]any{
		"ticker":      ticker(s.state.rng),
		"price_chart": klines(s.state.rng, s.now()),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var cfg model.SimulationConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}
	if cfg.NumTransactions <= 0 {
		cfg.NumTransactions = model.DefaultSimulationConfig().NumTransactions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	total := cfg.NumTransactions
	anomalies := total * cfg.AnomalyRate / 100
	s.state.addAnalysis(now, KindTestnet, total, anomalies, s.state.accuracy)
	s.state.logActivity(now, "Testnet Simulation", fmt.Sprintf("Simulated %d transactions", total))

	OK(w, map[string]any{
		"data": map[string]any{
			"total_transactions": total,
			"anomalies_detected": anomalies,
			"accuracy_score":     s.state.accuracy,
			"analysis_time":      s.state.between(1.5, 4.5, 2),
			"model_accuracies": map[string]float64{
				"svm":           0.85,
				"random_forest": 0.87,
				"adaboost":      0.82,
				"xgboost":       0.89,
			},
			"bar_data": map[string]int{
				"normal":    total - anomalies,
				"anomalous": anomalies,
			},
			"analysis_timestamp": now.Format(model.AnalysisTimestampLayout),
		},
		"demo": s.state.demo(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.state.testnetRuns()
	history := make([]map[string]any, 0, len(runs))
	totalAnomalies := 0
	totalAccuracy := 0.0
	for _, run := range runs {
		totalAnomalies += run.anomalies
		totalAccuracy += run.accuracy
		history = append(history, map[string]any{
			"id":                 run.id,
			"timestamp":          run.at.Format(historyTimeLayout),
			"total_transactions": run.total,
			"anomalies_detected": run.anomalies,
			"accuracy_score":     run.accuracy,
			"duration":           nil,
		})
	}
	avg := 0.0
	if len(runs) > 0 {
		avg = totalAccuracy / float64(len(runs))
	}

	OK(w, map[string]any{
		"history": history,
		"stats": map[string]any{
			"total_runs":      len(runs),
			"total_anomalies": totalAnomalies,
			"avg_accuracy":    avg,
		},
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.analyses[:0]
	for _, a := range s.state.analyses {
		if a.kind != KindTestnet {
			kept = append(kept, a)
		}
	}
	s.state.analyses = kept

	OK(w, nil)
}

const uploadPage = `<!doctype html>
<html><body>
<div class="alert alert-danger alert-dismissible">%s<button type="button" class="btn-close">&times;</button></div>
<form method="post" enctype="multipart/form-data"><input type="file" name="file" accept=".csv"></form>
</body></html>
`

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Redirect(w, r, "/upload", http.StatusFound)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		http.Redirect(w, r, "/upload", http.StatusFound)
		return
	}
	defer func() { _ = file.Close() }()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, uploadPage, html.EscapeString("Invalid file type. Please upload a CSV file."))
		return
	}

	headers, err := csv.NewReader(bufio.NewReader(file)).Read()
	if err != nil || !validHeaders(headers) {
		http.Redirect(w, r, "/upload", http.StatusFound)
		return
	}

	s.mu.Lock()
	now := s.now()
	rec := s.state.addAnalysis(now, KindUpload, 0, 0, s.state.accuracy)
	s.state.uploads = append(s.state.uploads, Upload{FileName: header.Filename, Size: header.Size, ID: rec.id})
	s.state.logActivity(now, "File Upload", "Uploaded file: "+header.Filename)
	s.mu.Unlock()

	http.Redirect(w, r, "/results/"+strconv.Itoa(rec.id), http.StatusFound)
}

// validHeaders accepts either price and qty or close and volume columns.
func validHeaders(headers []string) bool {
	cols := make(map[string]bool, len(headers))
	for _, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return (cols["price"] && cols["qty"]) || (cols["close"] && cols["volume"])
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		ERROR(w, http.StatusNotFound, errors.New("analysis not found"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, "<html><body><h1>Analysis #%d</h1></body></html>", id)
}
