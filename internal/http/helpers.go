package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shiori/internal/core"
	"shiori/internal/log"
	"shiori/internal/projection"
)

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

// indexURL returns the list URL, keeping the selected tab unless it is ALL.
func indexURL(tab string) string {
	if tab == "" || tab == projection.AllKey {
		return "/"
	}
	return "/?" + url.Values{"tab": {tab}}.Encode()
}

func entryPath(id int64) string {
	return "/entries/" + strconv.FormatInt(id, 10)
}

func editForm(e core.Entry) formView {
	f := formView{
		Action:  entryPath(e.ID),
		Editing: true,
		ID:      e.ID,
		Date:    e.Date,
		Time:    e.Time,
		Title:   e.Title,
		Memo:    e.Memo,
		URL:     e.URL,
	}
	if e.Cost != 0 {
		f.Cost = strconv.FormatInt(e.Cost, 10)
	}
	return f
}

// formFromDraft echoes rejected input back into the form.
func formFromDraft(action string, d core.Draft) formView {
	v := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return formView{
		Action: action,
		Date:   v(d.Date),
		Time:   v(d.Time),
		Title:  v(d.Title),
		Cost:   v(d.Cost),
		Memo:   v(d.Memo),
		URL:    v(d.URL),
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path, "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
	}
}

type errorData struct {
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", errorData{Status: status, Message: message})
}
