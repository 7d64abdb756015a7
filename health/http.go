package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Probe paths. The "__" prefix keeps them clear of tenant slugs.
const (
	LivenessPath  = "/__healthz"
	ReadinessPath = "/__readyz"
	DetailPath    = "/__health"
)

// LivenessHandler answers 200 while the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler runs every check and answers 503 if any is unhealthy.
// A degraded server still takes traffic.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := agg.Run(r.Context()).Status
		body := "OK"
		if status != StatusHealthy {
			body = "DEGRADED"
			if status == StatusUnhealthy {
				body = "UNHEALTHY"
			}
		}
		writeText(w, httpStatus(status), body)
	}
}

// Response is the body of the detailed endpoint.
type Response struct {
	Status    Status                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks"`
}

// CheckResponse is one check inside Response.
type CheckResponse struct {
	Status     Status         `json:"status"`
	Message    string         `json:"message,omitempty"`
	DurationMs float64        `json:"durationMs"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// DetailedHandler returns every check result as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.Run(r.Context())
		resp := Response{
			Status:    report.Status,
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]CheckResponse, len(report.Checks)),
		}
		for name, res := range report.Checks {
			cr := CheckResponse{
				Status:     res.Status,
				Message:    res.Message,
				DurationMs: float64(res.Duration.Microseconds()) / 1000,
				Details:    res.Details,
			}
			if res.Err != nil {
				cr.Error = res.Err.Error()
			}
			resp.Checks[name] = cr
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(httpStatus(report.Status))
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// RegisterHandlers registers the probe handlers on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc(LivenessPath, LivenessHandler())
	mux.HandleFunc(ReadinessPath, ReadinessHandler(agg))
	mux.HandleFunc(DetailPath, DetailedHandler(agg))
}
