package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shiori/internal/core"
	"shiori/internal/export"
	"shiori/internal/log"
	"shiori/internal/projection"
	"shiori/internal/services"
	"shiori/internal/transfer"
)

const (
	msgEmptyTitle   = "行き先・やることを入力してください"
	msgImportFailed = "共有データを読み込めませんでした。リンクが壊れている可能性があります。"
	msgNotFound     = "予定が見つかりませんでした"
	msgNotConfirmed = "削除を確認してください"
	msgTooLarge     = "予定が多すぎてQRコードに入りません。テキストで保存してください。"
	msgSaveFailed   = "保存に失敗しました"
)

// formView is the entry form as rendered.
type formView struct {
	Action  string
	Editing bool
	ID      int64
	Date    string
	Time    string
	Title   string
	Cost    string
	Memo    string
	URL     string
}

type tabView struct {
	projection.Tab
	Active bool
}

type pageData struct {
	Tab     string
	Tabs    []tabView
	Groups  []projection.Group
	Total   int64
	Empty   bool
	Form    formView
	Error   string
	Warning string
}

type shareData struct {
	Link  string
	QRSrc string
	Count int
	Error string
	Tab   string
}

// handleIndex renders the list. A data parameter is imported first: on
// success the browser is redirected to the same URL without it, on failure
// the page is rendered with a warning and the URL is left as it is.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tab := query.Get("tab")

	var warning string
	if token := query.Get(transfer.Param); token != "" {
		if _, err := s.itinerary.Import(r.Context(), token); err == nil {
			query.Del(transfer.Param)
			target := url.URL{Path: r.URL.Path, RawQuery: query.Encode()}
			http.Redirect(w, r, target.String(), http.StatusSeeOther)
			return
		}
		warning = msgImportFailed
	}

	data := s.page(tab, formView{Action: "/entries", Date: s.itinerary.LastDate()})
	data.Warning = warning
	s.render(w, r, http.StatusOK, "index.html", data)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	}
	e, found := s.itinerary.Get(id)
	if !found {
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", s.page(r.URL.Query().Get("tab"), editForm(e)))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := parseRequest(w, r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	draft := p.Draft()

	e, err := s.itinerary.Add(r.Context(), draft)
	if errors.Is(err, core.ErrEmptyTitle) {
		data := s.page(p.Get("tab"), formFromDraft("/entries", draft))
		data.Error = msgEmptyTitle
		s.render(w, r, http.StatusUnprocessableEntity, "index.html", data)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Add entry failed", log.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusCreated, e)
		return
	}
	http.Redirect(w, r, indexURL(p.Get("tab")), http.StatusSeeOther)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	}
	p, err := parseRequest(w, r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	draft := p.Draft()

	e, err := s.itinerary.Update(r.Context(), id, draft)
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	case errors.Is(err, core.ErrEmptyTitle):
		form := formFromDraft(entryPath(id), draft)
		form.Editing, form.ID = true, id
		data := s.page(p.Get("tab"), form)
		data.Error = msgEmptyTitle
		s.render(w, r, http.StatusUnprocessableEntity, "index.html", data)
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Update entry failed", log.FieldEntryID, id, log.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusOK, e)
		return
	}
	http.Redirect(w, r, indexURL(p.Get("tab")), http.StatusSeeOther)
}

// handleDelete requires confirm=yes like handleClear; the delete button
// asks in the browser before sending it.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	confirmed := services.Confirmed(r.PostForm.Get("confirm") == "yes")
	if err := s.itinerary.Remove(r.Context(), id, confirmed); errors.Is(err, services.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, msgNotFound)
		return
	} else if errors.Is(err, services.ErrNotConfirmed) {
		s.renderError(w, r, http.StatusBadRequest, msgNotConfirmed)
		return
	} else if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, msgSaveFailed)
		return
	}
	http.Redirect(w, r, indexURL(r.PostForm.Get("tab")), http.StatusSeeOther)
}

// handleClear requires confirm=yes in the form; the page asks before sending it.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	confirmed := services.Confirmed(r.PostForm.Get("confirm") == "yes")
	err := s.itinerary.ClearAll(r.Context(), confirmed)
	if errors.Is(err, services.ErrNotConfirmed) {
		s.renderError(w, r, http.StatusBadRequest, msgNotConfirmed)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Clear failed", log.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, msgSaveFailed)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	data := shareData{Count: len(s.itinerary.Entries()), Tab: r.URL.Query().Get("tab")}
	link, err := s.itinerary.ShareLink(s.shareBase(r))
	if errors.Is(err, transfer.ErrPayloadTooLarge) {
		data.Error = msgTooLarge
		s.render(w, r, http.StatusRequestEntityTooLarge, "share.html", data)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Share link failed", log.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, "共有リンクを作成できませんでした")
		return
	}
	data.Link = link
	data.QRSrc = "/share.png"
	s.render(w, r, http.StatusOK, "share.html", data)
}

// handleSharePNG renders the share link as a QR image. Images are cached by
// link, which changes whenever the itinerary does. Concurrent misses for
// the same link share one render.
func (s *Server) handleSharePNG(w http.ResponseWriter, r *http.Request) {
	link, err := s.itinerary.ShareLink(s.shareBase(r))
	if errors.Is(err, transfer.ErrPayloadTooLarge) {
		http.Error(w, "itinerary too large for a QR code", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		http.Error(w, "could not build share link", http.StatusInternalServerError)
		return
	}

	png, err := s.qrCache.GetOrCreate(link, func() ([]byte, error) {
		v, err, _ := s.qrFlight.Do(link, func() (any, error) {
			return s.qr.PNG(link)
		})
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	})
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "QR render failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		http.Error(w, "could not render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	if err := export.Write(w, s.itinerary.View()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed", log.FieldError, err)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	stats := s.qrCache.Stats()
	checks["qr_cache"] = map[string]any{"entries": stats.Size, "hits": stats.Hits, "misses": stats.Misses}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	view := s.itinerary.View()
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheStats := s.qrCache.Stats()

	entries := 0
	for _, g := range view.Groups {
		entries += len(g.Entries)
	}

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("itinerary_entries", "gauge", "Entries in the itinerary", entries)
	metric("itinerary_total_yen", "gauge", "Sum of entry costs", view.Total)
	metric("qr_cache_hits_total", "counter", "QR cache hits", cacheStats.Hits)
	metric("qr_cache_misses_total", "counter", "QR cache misses", cacheStats.Misses)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

// page builds the list part of the index page for the selected tab.
func (s *Server) page(tab string, form formView) pageData {
	view := s.itinerary.View()
	selected := projection.ResolveTab(view, tab)

	data := pageData{
		Tab:    selected,
		Groups: projection.Filter(view, selected),
		Total:  view.Total,
		Empty:  len(view.Groups) == 0,
		Form:   form,
	}
	for _, t := range projection.Tabs(view) {
		data.Tabs = append(data.Tabs, tabView{Tab: t, Active: t.Key == selected})
	}
	return data
}

// shareBase is the configured base URL or the origin the request came in on.
func (s *Server) shareBase(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: r.Host, Path: "/"}).String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
