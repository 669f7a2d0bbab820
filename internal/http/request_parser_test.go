package http

import (
	"testing"
)

func TestNewRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantJSON    bool
		wantErr     bool
	}{
		{"form", "application/x-www-form-urlencoded", "title=a&cost=1", false, false},
		{"json by content type", "application/json; charset=utf-8", `{"title":"a"}`, true, false},
		{"json sniffed", "text/plain", ` {"title":"a"}`, true, false},
		{"broken json", "application/json", `{"title":`, false, true},
		{"broken form", "", "title=%zz", false, true},
		{"empty form", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRequestBodyParser(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserGet(t *testing.T) {
	p, err := NewRequestBodyParser("application/json", []byte(`{"title":"  寿司\u0007 ","cost":1500,"flag":true,"memo":null}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.Get("title"); got != "寿司" {
		t.Errorf("title = %q", got)
	}
	if got := p.Get("cost"); got != "1500" {
		t.Errorf("cost = %q", got)
	}
	if got := p.Get("flag"); got != "true" {
		t.Errorf("flag = %q", got)
	}
	if p.Has("memo") {
		t.Errorf("null memo should count as absent")
	}
	if p.Has("url") {
		t.Errorf("missing url should be absent")
	}
}

func TestRequestBodyParserDraft(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, p *RequestBodyParser)
	}{
		{
			name: "only present form keys",
			body: "title=%E6%B5%85%E8%8D%89&memo=",
			check: func(t *testing.T, p *RequestBodyParser) {
				d := p.Draft()
				if d.Title == nil || *d.Title != "浅草" {
					t.Errorf("Title = %v", d.Title)
				}
				if d.Memo == nil || *d.Memo != "" {
					t.Errorf("empty memo should be present, got %v", d.Memo)
				}
				if d.Date != nil || d.Time != nil || d.Cost != nil || d.URL != nil {
					t.Errorf("absent keys should stay nil: %+v", d)
				}
			},
		},
		{
			name: "json numbers become strings",
			body: `{"cost":2000,"date":"2024-05-01"}`,
			check: func(t *testing.T, p *RequestBodyParser) {
				d := p.Draft()
				if d.Cost == nil || *d.Cost != "2000" {
					t.Errorf("Cost = %v", d.Cost)
				}
				if d.Date == nil || *d.Date != "2024-05-01" {
					t.Errorf("Date = %v", d.Date)
				}
				if d.Title != nil {
					t.Errorf("Title should be nil")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRequestBodyParser("", []byte(tt.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"line1\nline2", "line1\nline2"},
		{"bell\x07", "bell"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIndexURL(t *testing.T) {
	tests := []struct {
		tab, want string
	}{
		{"", "/"},
		{"ALL", "/"},
		{"2024-05-01", "/?tab=2024-05-01"},
		{"undecided", "/?tab=undecided"},
	}
	for _, tt := range tests {
		if got := indexURL(tt.tab); got != tt.want {
			t.Errorf("indexURL(%q) = %q, want %q", tt.tab, got, tt.want)
		}
	}
}
