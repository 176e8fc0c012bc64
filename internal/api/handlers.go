package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/nasagw/internal/enhance"
	"github.com/kalambet/nasagw/internal/nasa"
	"github.com/kalambet/nasagw/internal/proxy"
	"github.com/kalambet/nasagw/internal/upstream"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Assistant produces a chat reply for a single user message.
type Assistant interface {
	Complete(ctx context.Context, model, message string) (string, error)
}

// Enhancer turns an image URL into an enhanced image URL.
type Enhancer interface {
	Run(ctx context.Context, imageURL string) (string, error)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "NASA Framework API is running",
	})
}

type feedFunc func(ctx context.Context, r *http.Request) (*upstream.Response, error)

// handleFeed relays one upstream response unchanged, or a generic failure
// naming the feature. Upstream error details only reach the log.
func handleFeed(feature nasa.Feature, fetch feedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fetch(r.Context(), r)
		if err != nil {
			if errors.Is(err, nasa.ErrInvalidQuery) {
				httpError(w, http.StatusBadRequest, "Invalid "+string(feature)+" query")
				return
			}
			attrs := []any{
				"feature", string(feature),
				"request_id", RequestID(r.Context()),
				"error", err,
			}
			var se *upstream.StatusError
			if errors.As(err, &se) {
				attrs = append(attrs, "status", se.Status, "upstream_body", se.Body)
			}
			slog.ErrorContext(r.Context(), "upstream fetch failed", attrs...)
			httpError(w, http.StatusInternalServerError, feature.FailureMessage())
			return
		}

		ct := resp.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
		w.Write(resp.Body)
	}
}

func apodFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.APOD(ctx, nasa.APODQuery{
			Date:   q.Get("date"),
			Count:  q.Get("count"),
			Thumbs: q.Get("thumbs"),
		})
	}
}

func roverFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.MarsRover(ctx, nasa.RoverQuery{
			Rover:     q.Get("rover"),
			Sol:       q.Get("sol"),
			EarthDate: q.Get("earth_date"),
			Camera:    q.Get("camera"),
			Page:      q.Get("page"),
		})
	}
}

func earthFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.EarthImagery(ctx, nasa.EarthQuery{
			Lat:  q.Get("lat"),
			Lon:  q.Get("lon"),
			Date: q.Get("date"),
			Dim:  q.Get("dim"),
		})
	}
}

func neoFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.NEO(ctx, nasa.NEOQuery{
			StartDate: q.Get("start_date"),
			EndDate:   q.Get("end_date"),
		})
	}
}

func epicFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		return f.EPIC(ctx, nasa.EPICQuery{Date: r.URL.Query().Get("date")})
	}
}

func donkiFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.SpaceWeather(ctx, nasa.DONKIQuery{
			Type:      q.Get("type"),
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		})
	}
}

func eonetFeed(f *nasa.Feeds) feedFunc {
	return func(ctx context.Context, r *http.Request) (*upstream.Response, error) {
		q := r.URL.Query()
		return f.EONET(ctx, nasa.EONETQuery{
			Status: q.Get("status"),
			Limit:  q.Get("limit"),
			Days:   q.Get("days"),
		})
	}
}

type assistantRequest struct {
	Message string `json:"message"`
}

func handleAssistant(a Assistant, model string, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req assistantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "Message is required")
			return
		}

		start := time.Now()
		reply, err := a.Complete(r.Context(), model, req.Message)
		m.observeUpstream(assistantFeature, assistantOutcome(err), time.Since(start))
		if err != nil {
			var ue *proxy.UpstreamError
			if errors.As(err, &ue) {
				slog.WarnContext(r.Context(), "assistant upstream rejected request",
					"status", ue.Status,
					"request_id", RequestID(r.Context()),
				)
				httpError(w, passthroughStatus(ue.Status), ue.Body)
				return
			}
			slog.ErrorContext(r.Context(), "assistant request failed",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			httpError(w, http.StatusInternalServerError, "Failed to get assistant response")
			return
		}

		writeJSON(w, http.StatusOK, proxy.NewExchange(model, req.Message, reply))
	}
}

// passthroughStatus keeps upstream error statuses, mapping anything that is
// not a 4xx or 5xx to 502.
func passthroughStatus(status int) int {
	if status < 400 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}

type enhanceRequest struct {
	ImageURL string `json:"imageUrl"`
}

type enhanceResponse struct {
	EnhancedURL string `json:"enhancedUrl"`
}

func handleEnhance(e Enhancer, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req enhanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
			httpError(w, http.StatusBadRequest, "Missing imageUrl")
			return
		}

		out, err := e.Run(r.Context(), req.ImageURL)
		m.ObserveEnhance(enhance.Outcome(err))
		if err != nil {
			var f *enhance.Failure
			if errors.As(err, &f) {
				httpError(w, http.StatusInternalServerError, "Enhancement failed")
				return
			}
			slog.ErrorContext(r.Context(), "enhancement request failed",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			httpError(w, http.StatusInternalServerError, "Failed to enhance image")
			return
		}

		writeJSON(w, http.StatusOK, enhanceResponse{EnhancedURL: out})
	}
}
