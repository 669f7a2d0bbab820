// Package transfer turns an itinerary into a compact URL-safe token and back.
//
// The pipeline is canonical JSON, raw DEFLATE at best compression, then
// base64url without padding. Every stage is reversed by Decode, which never
// panics and reports any failure as a *DecodeError.
package transfer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/flate"

	"shiori/internal/core"
)

const (
	// Param is the query parameter carrying a token in a share link.
	Param = "data"

	// MaxLinkBytes is the byte-mode capacity of the largest QR symbol at the
	// lowest error correction level. Longer links cannot be scanned.
	MaxLinkBytes = 2953

	// maxInflated bounds the decompressed payload accepted by Decode.
	maxInflated = 1 << 20
)

var (
	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("transfer decode failed")
	// ErrPayloadTooLarge is returned when a share link exceeds MaxLinkBytes.
	ErrPayloadTooLarge = errors.New("transfer payload too large for a QR code")
)

// DecodeError reports the stage at which a token was rejected.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transfer decode (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

var encoding = base64.RawURLEncoding

// Encode serializes entries into a transfer token.
func Encode(entries []core.Entry) (string, error) {
	if entries == nil {
		entries = []core.Entry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create compressor: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Duplicate ids in the payload are kept as they are.
func Decode(token string) ([]core.Entry, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return nil, &DecodeError{Stage: "token", Err: errors.New("empty token")}
	}

	compressed, err := encoding.DecodeString(token)
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	payload, err := io.ReadAll(io.LimitReader(r, maxInflated+1))
	if err != nil {
		return nil, &DecodeError{Stage: "inflate", Err: err}
	}
	if len(payload) > maxInflated {
		return nil, &DecodeError{Stage: "inflate", Err: fmt.Errorf("payload exceeds %d bytes", maxInflated)}
	}

	entries, err := core.ParseEntries(payload)
	if err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	return entries, nil
}

// Link builds <origin><path>?data=<token> from base. Any query or fragment of
// base is dropped.
func Link(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = url.Values{Param: {token}}.Encode()
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// ShareLink encodes entries and wraps the token in a link, refusing links a
// QR code could not hold.
func ShareLink(base string, entries []core.Entry) (string, error) {
	token, err := Encode(entries)
	if err != nil {
		return "", err
	}
	link, err := Link(base, token)
	if err != nil {
		return "", err
	}
	if len(link) > MaxLinkBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(link))
	}
	return link, nil
}

// TokenFromLink extracts the data parameter of a full link.
func TokenFromLink(link string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", false
	}
	token := u.Query().Get(Param)
	return token, token != ""
}

// Normalize accepts either a full share link or a bare token and returns the token.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "?") || strings.Contains(input, "://") {
		if token, ok := TokenFromLink(input); ok {
			return token
		}
	}
	return input
}
