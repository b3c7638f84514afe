package credential

import (
	"encoding/json"
	"time"
)

// expirySkew treats tokens as expired slightly before their stated expiry so
// an in-flight request does not race the deadline.
const expirySkew = 3 * time.Minute

// Record is the canonical in-memory representation of one OAuth identity,
// bound to at most one cloud project. All stored shapes normalize into this.
type Record struct {
	// Identity is an opaque handle, the storage id the record was read
	// under (by convention "{project_id}.json" for the file store).
	Identity string `json:"-"`

	ProjectID    string    `json:"project_id,omitempty"`
	AccessToken  string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`

	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// IsExpired reports whether the access token can no longer be presented
// upstream. A record without an expiry is unusable until refreshed.
func (r *Record) IsExpired() bool {
	if r.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(expirySkew).After(r.Expiry)
}

// Usable reports whether the record carries a presentable access token.
func (r *Record) Usable() bool {
	return r.AccessToken != "" && !r.IsExpired()
}

// Marshal renders the record in the canonical stored shape: `token` for the
// access token, `scopes` as an array, `expiry` as RFC3339 UTC.
func (r *Record) Marshal() ([]byte, error) {
	type stored Record
	s := stored(*r)
	s.Expiry = s.Expiry.UTC()
	return json.MarshalIndent(&s, "", "  ")
}
