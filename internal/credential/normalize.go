package credential

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "geminicli2api/internal/errors"
)

// Stored credential files come from several generations of tooling and do
// not share one schema. The aliasing rules are enumerated here as data; no
// other code inspects raw credential JSON.

// tokenFields in priority order; the first non-empty value wins.
var tokenFields = []string{"token", "access_token"}

// scopeListFields hold scopes as a JSON array; scopeStringFields hold them
// as one space-delimited string. Array form wins.
var (
	scopeListFields   = []string{"scopes"}
	scopeStringFields = []string{"scope"}
)

// expiryLayouts are the accepted expiry formats, tried in order. All parse
// results are normalized to UTC.
var expiryLayouts = []string{
	time.RFC3339,                // Z suffix or explicit offset
	time.RFC3339Nano,            // fractional seconds
	"2006-01-02T15:04:05Z",      // epoch-derived UTC form
	"2006-01-02T15:04:05",       // naive, assumed UTC
	"2006-01-02 15:04:05.99999", // legacy google-auth repr
}

// Normalize parses one stored credential blob into the canonical Record.
// Malformed JSON is an error; a malformed expiry is not, the record is just
// treated as already expired.
func Normalize(identity string, raw []byte) (*Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &apperrors.CredentialLoadError{Identity: identity, Reason: "invalid JSON"}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, &apperrors.CredentialLoadError{Identity: identity, Reason: "not a JSON object"}
	}

	rec := &Record{
		Identity:     identity,
		ProjectID:    doc.Get("project_id").String(),
		RefreshToken: doc.Get("refresh_token").String(),
		ClientID:     doc.Get("client_id").String(),
		ClientSecret: doc.Get("client_secret").String(),
		TokenURI:     doc.Get("token_uri").String(),
	}

	for _, field := range tokenFields {
		if v := doc.Get(field); v.Exists() && v.String() != "" {
			rec.AccessToken = v.String()
			break
		}
	}

	for _, field := range scopeListFields {
		if v := doc.Get(field); v.IsArray() {
			for _, s := range v.Array() {
				if s.String() != "" {
					rec.Scopes = append(rec.Scopes, s.String())
				}
			}
			break
		}
	}
	if len(rec.Scopes) == 0 {
		for _, field := range scopeStringFields {
			if v := doc.Get(field); v.Exists() && v.String() != "" {
				rec.Scopes = strings.Fields(v.String())
				break
			}
		}
	}

	if v := doc.Get("expiry"); v.Exists() {
		rec.Expiry = parseExpiry(v)
	}

	if rec.AccessToken == "" && rec.RefreshToken == "" {
		return nil, &apperrors.CredentialLoadError{Identity: identity, Reason: "no access or refresh token"}
	}
	return rec, nil
}

// parseExpiry returns the zero time for anything it cannot parse, which
// downstream treats as "already expired".
func parseExpiry(v gjson.Result) time.Time {
	if v.Type == gjson.Number {
		sec := int64(v.Float())
		if sec <= 0 {
			return time.Time{}
		}
		return time.Unix(sec, 0).UTC()
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return time.Time{}
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
