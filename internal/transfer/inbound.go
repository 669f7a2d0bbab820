package transfer

import (
	"net/url"
	"os"
)

// Inbound is an ambient channel that may carry a token at startup. Consume is
// called only after the token decoded successfully.
type Inbound interface {
	Token() (string, bool)
	Consume()
}

// URLInbound reads the data parameter of a page address.
type URLInbound struct {
	u *url.URL
}

func NewURLInbound(u *url.URL) *URLInbound {
	c := *u
	return &URLInbound{u: &c}
}

func (in *URLInbound) Token() (string, bool) {
	token := in.u.Query().Get(Param)
	return token, token != ""
}

// Consume strips the data parameter, keeping every other one.
func (in *URLInbound) Consume() {
	q := in.u.Query()
	q.Del(Param)
	in.u.RawQuery = q.Encode()
}

// Location is the address with its current query.
func (in *URLInbound) Location() string {
	return in.u.String()
}

// EnvInbound reads a token or link from an environment variable.
type EnvInbound struct {
	Name string
}

func (in EnvInbound) Token() (string, bool) {
	if in.Name == "" {
		return "", false
	}
	v, ok := os.LookupEnv(in.Name)
	if !ok || v == "" {
		return "", false
	}
	return Normalize(v), true
}

// Consume unsets the variable so child processes do not import it again.
func (in EnvInbound) Consume() {
	if in.Name != "" {
		os.Unsetenv(in.Name)
	}
}

// StaticInbound carries a fixed value, such as a command-line argument.
type StaticInbound struct {
	Value    string
	Consumed bool
}

func (in *StaticInbound) Token() (string, bool) {
	if in.Consumed || in.Value == "" {
		return "", false
	}
	return Normalize(in.Value), true
}

func (in *StaticInbound) Consume() {
	in.Consumed = true
}
