// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of entry submissions. Browsers post
// form-encoded bodies; scripts may post JSON objects with the same keys.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shiori/internal/core"
)

const maxBodyBytes = 64 << 10

// draftFields are the request keys that map onto core.Draft.
var draftFields = []string{"date", "time", "title", "cost", "memo", "url"}

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	jsonData map[string]any
	formData url.Values
}

// parseRequest reads and parses the request body once, bounded by maxBodyBytes.
func parseRequest(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return NewRequestBodyParser(r.Header.Get("Content-Type"), body)
}

// NewRequestBodyParser parses body as JSON when the content type says so or
// the body looks like an object, and as form data otherwise.
func NewRequestBodyParser(contentType string, body []byte) (*RequestBodyParser, error) {
	p := &RequestBodyParser{}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(body, &p.jsonData); err != nil {
			return nil, err
		}
		return p, nil
	}

	form, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, err
	}
	p.formData = form
	return p, nil
}

// Has reports whether key was present in the request, even if empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	_, ok := p.formData[key]
	return ok
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	return sanitizeInput(p.formData.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Draft collects the entry fields present in the request. Absent keys stay
// nil so an update leaves those fields untouched.
func (p *RequestBodyParser) Draft() core.Draft {
	var d core.Draft
	targets := map[string]**string{
		"date":  &d.Date,
		"time":  &d.Time,
		"title": &d.Title,
		"cost":  &d.Cost,
		"memo":  &d.Memo,
		"url":   &d.URL,
	}
	for _, key := range draftFields {
		if p.Has(key) {
			*targets[key] = core.Str(p.Get(key))
		}
	}
	return d
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
