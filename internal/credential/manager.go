package credential

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "geminicli2api/internal/errors"
)

// EnvIdentity is the synthetic identity of a credential supplied via the
// GEMINI_CREDENTIALS blob. It is never persisted back.
const EnvIdentity = "env"

// Options configures a Manager.
type Options struct {
	Store Store

	// EnvCredentialJSON is an optional out-of-band credential blob.
	EnvCredentialJSON string

	// OAuth client used for refresh exchanges when a record does not embed
	// its own.
	ClientID     string
	ClientSecret string

	// TokenURL overrides the Google token endpoint (tests).
	TokenURL string

	CooldownBase time.Duration
	CooldownMax  time.Duration

	HTTPClient *http.Client
}

// Manager composes the store, the normalizer and the cooldown tracker into
// the credential pool. It selects, refreshes and persists credentials; it
// never loops or retries, rotation policy belongs to the caller.
type Manager struct {
	store    Store
	cooldown *CooldownTracker

	envJSON      string
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	// refreshMu serializes the refresh-and-persist sequence per identity so
	// concurrent callers converge on a single exchange.
	refreshMu sync.Mutex
	refreshes map[string]*sync.Mutex

	// listMu guards the cached identity listing. The cache is dropped on
	// writes and by the directory watcher.
	listMu     sync.Mutex
	cachedIDs  []string
	listCached bool
}

func NewManager(opts Options) *Manager {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		store:        opts.Store,
		cooldown:     NewCooldownTracker(opts.CooldownBase, opts.CooldownMax),
		envJSON:      opts.EnvCredentialJSON,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		tokenURL:     opts.TokenURL,
		httpClient:   httpClient,
	}
}

// ListCredentials returns the persisted identities in selection order. The
// env credential, when configured, comes first.
func (m *Manager) ListCredentials(ctx context.Context) ([]string, error) {
	m.listMu.Lock()
	if m.listCached {
		ids := append([]string(nil), m.cachedIDs...)
		m.listMu.Unlock()
		return ids, nil
	}
	m.listMu.Unlock()

	var ids []string
	if m.envJSON != "" {
		ids = append(ids, EnvIdentity)
	}
	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, stored...)
	}

	m.listMu.Lock()
	m.cachedIDs = append([]string(nil), ids...)
	m.listCached = true
	m.listMu.Unlock()
	return ids, nil
}

// InvalidateCache drops the cached identity listing so the next selection
// re-reads the store. Called after writes and by the directory watcher.
func (m *Manager) InvalidateCache() {
	m.listMu.Lock()
	m.cachedIDs = nil
	m.listCached = false
	m.listMu.Unlock()
}

// Load reads and normalizes one identity.
func (m *Manager) Load(ctx context.Context, identity string) (*Record, error) {
	if identity == EnvIdentity {
		if m.envJSON == "" {
			return nil, ErrNotFound
		}
		return Normalize(EnvIdentity, []byte(m.envJSON))
	}
	if m.store == nil {
		return nil, ErrNotFound
	}
	raw, err := m.store.Read(ctx, identity)
	if err != nil {
		return nil, err
	}
	return Normalize(identity, raw)
}

// FindForProject scans the persisted records for one bound to the given
// project id. Records that fail to normalize are skipped.
func (m *Manager) FindForProject(ctx context.Context, projectID string) (*Record, error) {
	ids, err := m.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		rec, err := m.Load(ctx, id)
		if err != nil {
			log.WithError(err).Warnf("skipping credential %s", id)
			continue
		}
		if rec.ProjectID == projectID {
			return rec, nil
		}
	}
	return nil, apperrors.ErrNoUsableCredential
}

// LoadAny returns the first record that normalizes, carries a non-empty
// access token, and is not cooling down.
func (m *Manager) LoadAny(ctx context.Context) (*Record, error) {
	ids, err := m.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if m.cooldown.InCooldown(id) {
			log.Debugf("credential %s cooling down, skipped", id)
			continue
		}
		rec, err := m.Load(ctx, id)
		if err != nil {
			log.WithError(err).Warnf("skipping credential %s", id)
			continue
		}
		if rec.AccessToken != "" {
			return rec, nil
		}
	}
	return nil, apperrors.ErrNoUsableCredential
}

// Resolve is the preferred entry point: a specific project binding when
// requested, any usable credential otherwise.
func (m *Manager) Resolve(ctx context.Context, projectID string) (*Record, error) {
	if projectID != "" {
		if rec, err := m.FindForProject(ctx, projectID); err == nil {
			return rec, nil
		}
	}
	return m.LoadAny(ctx)
}

// RefreshIfExpired exchanges the refresh token for a new access token when
// the record is expired, persists the update, and returns the record. The
// exchange is single-flighted per identity; a concurrent caller that lost
// the race observes the already-refreshed record.
func (m *Manager) RefreshIfExpired(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("credential record is nil")
	}
	if !rec.IsExpired() {
		return rec, nil
	}
	if rec.RefreshToken == "" {
		return rec, &apperrors.RefreshError{Identity: rec.Identity, Err: fmt.Errorf("no refresh token")}
	}

	lock := m.refreshLock(rec.Identity)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have completed the exchange while we waited.
	if fresh, err := m.Load(ctx, rec.Identity); err == nil && !fresh.IsExpired() {
		return fresh, nil
	}

	token, err := m.exchange(ctx, rec)
	if err != nil {
		return rec, &apperrors.RefreshError{Identity: rec.Identity, Err: err}
	}

	rec.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		rec.RefreshToken = token.RefreshToken
	}
	rec.Expiry = token.Expiry.UTC()

	if err := m.Persist(ctx, rec); err != nil {
		log.WithError(err).Warnf("refreshed credential %s could not be persisted", rec.Identity)
	}
	log.Debugf("credential %s refreshed, expires %s", rec.Identity, rec.Expiry.Format(time.RFC3339))
	return rec, nil
}

func (m *Manager) exchange(ctx context.Context, rec *Record) (*oauth2.Token, error) {
	endpoint := google.Endpoint
	if rec.TokenURI != "" {
		endpoint.TokenURL = rec.TokenURI
	}
	if m.tokenURL != "" {
		endpoint.TokenURL = m.tokenURL
	}
	conf := &oauth2.Config{
		ClientID:     firstNonEmpty(rec.ClientID, m.clientID),
		ClientSecret: firstNonEmpty(rec.ClientSecret, m.clientSecret),
		Endpoint:     endpoint,
		Scopes:       rec.Scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})
	return src.Token()
}

// Persist writes the record back to the store. The env credential has no
// durable home; writes to it are skipped.
func (m *Manager) Persist(ctx context.Context, rec *Record) error {
	if rec.Identity == EnvIdentity {
		log.Debug("env credential is read-only, skipping persist")
		return nil
	}
	if m.store == nil {
		return fmt.Errorf("no store configured")
	}
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("marshal credential %s: %w", rec.Identity, err)
	}
	if err := m.store.Write(ctx, rec.Identity, data); err != nil {
		return err
	}
	m.InvalidateCache()
	return nil
}

func (m *Manager) refreshLock(identity string) *sync.Mutex {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	if m.refreshes == nil {
		m.refreshes = make(map[string]*sync.Mutex)
	}
	lock, ok := m.refreshes[identity]
	if !ok {
		lock = &sync.Mutex{}
		m.refreshes[identity] = lock
	}
	return lock
}

// Cooldown bookkeeping, delegated to the tracker. The caller invokes
// SetCooldown/ResetCooldown exactly once per attempt outcome.

func (m *Manager) SetCooldown(identity string) time.Duration { return m.cooldown.Set(identity) }
func (m *Manager) ResetCooldown(identity string)             { m.cooldown.Reset(identity) }
func (m *Manager) InCooldown(identity string) bool           { return m.cooldown.InCooldown(identity) }
func (m *Manager) RemainingCooldown(identity string) time.Duration {
	return m.cooldown.Remaining(identity)
}
func (m *Manager) CooldownSnapshot() []CooldownInfo { return m.cooldown.Snapshot() }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
