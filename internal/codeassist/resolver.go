package codeassist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"geminicli2api/internal/credential"
	apperrors "geminicli2api/internal/errors"
)

// Resolver determines which Google Cloud project a credential operates
// against and ensures that project has completed the Code Assist onboarding
// handshake. Onboarding completion is tracked per project, so a pool mixing
// onboarded and fresh projects never lets one project's state mask
// another's.
type Resolver struct {
	client  *Client
	manager *credential.Manager

	// overrideProject is the GOOGLE_CLOUD_PROJECT operator override.
	overrideProject string

	pollInterval time.Duration
	maxAttempts  int

	mu        sync.Mutex
	onboarded map[string]bool
}

type ResolverOptions struct {
	Client          *Client
	Manager         *credential.Manager
	OverrideProject string
	PollInterval    time.Duration
	MaxAttempts     int
}

func NewResolver(opts ResolverOptions) *Resolver {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 60
	}
	return &Resolver{
		client:          opts.Client,
		manager:         opts.Manager,
		overrideProject: opts.OverrideProject,
		pollInterval:    interval,
		maxAttempts:     attempts,
		onboarded:       make(map[string]bool),
	}
}

// ResolveProjectID determines the project for a credential, in priority
// order: the project embedded in the record, the operator override, then
// discovery via a bare loadCodeAssist probe. A discovered id is written back
// to the record so later requests skip the probe.
func (r *Resolver) ResolveProjectID(ctx context.Context, rec *credential.Record) (string, error) {
	if rec.ProjectID != "" {
		return rec.ProjectID, nil
	}
	if r.overrideProject != "" {
		log.Debugf("using project override %s for credential %s", r.overrideProject, rec.Identity)
		return r.overrideProject, nil
	}

	rec, err := r.manager.RefreshIfExpired(ctx, rec)
	if err != nil {
		return "", err
	}

	data, err := r.client.LoadCodeAssist(ctx, rec.AccessToken, "")
	if err != nil {
		var onbErr *apperrors.OnboardingError
		if errors.As(err, &onbErr) {
			return "", &apperrors.ProjectDiscoveryError{
				Reason: fmt.Sprintf("loadCodeAssist returned status %d: %s", onbErr.Status, onbErr.Body),
			}
		}
		return "", &apperrors.ProjectDiscoveryError{Reason: err.Error()}
	}
	discovered := data.Get("cloudaicompanionProject").String()
	if discovered == "" {
		return "", &apperrors.ProjectDiscoveryError{Reason: "no cloudaicompanionProject in loadCodeAssist response"}
	}
	log.Infof("discovered project %s for credential %s", discovered, rec.Identity)

	rec.ProjectID = discovered
	if err := r.manager.Persist(ctx, rec); err != nil {
		log.WithError(err).Warnf("could not persist discovered project for %s", rec.Identity)
	}
	return discovered, nil
}

// EnsureOnboarded runs the Code Assist setup handshake for a project if it
// has not completed yet in this process. Safe for concurrent callers.
func (r *Resolver) EnsureOnboarded(ctx context.Context, rec *credential.Record, projectID string) error {
	r.mu.Lock()
	if r.onboarded[projectID] {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	rec, err := r.manager.RefreshIfExpired(ctx, rec)
	if err != nil {
		return err
	}

	load, err := r.client.LoadCodeAssist(ctx, rec.AccessToken, projectID)
	if err != nil {
		return err
	}

	// The governing tier may require an operator-supplied project even when
	// the account is already set up, so that check runs first.
	tier := selectTier(load)
	if tier.Get("userDefinedCloudaicompanionProject").Bool() && projectID == "" {
		return &apperrors.ConfigurationError{
			Reason: "this account requires setting the GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	// An account with a current tier is already set up.
	if load.Get("currentTier").Exists() {
		r.markOnboarded(projectID)
		return nil
	}

	tierID := tier.Get("id").String()
	log.Infof("onboarding project %s on tier %s", projectID, tierID)

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		lro, err := r.client.OnboardUser(ctx, rec.AccessToken, tierID, projectID)
		if err != nil {
			return err
		}
		if lro.Get("done").Bool() {
			r.markOnboarded(projectID)
			log.Infof("project %s onboarded", projectID)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
	return &apperrors.OnboardingError{
		Status: 0,
		Body:   fmt.Sprintf("onboarding did not complete after %d attempts", r.maxAttempts),
	}
}

func (r *Resolver) markOnboarded(projectID string) {
	r.mu.Lock()
	r.onboarded[projectID] = true
	r.mu.Unlock()
}

// selectTier picks the governing tier: the account's current tier when
// present, else the default among allowedTiers, else a synthesized legacy
// tier that requires a user-defined project.
func selectTier(load gjson.Result) gjson.Result {
	if cur := load.Get("currentTier"); cur.Exists() {
		return cur
	}
	var tier gjson.Result
	load.Get("allowedTiers").ForEach(func(_, value gjson.Result) bool {
		if value.Get("isDefault").Bool() {
			tier = value
			return false
		}
		return true
	})
	if tier.Exists() {
		return tier
	}
	return gjson.Parse(`{"name":"","description":"","id":"legacy-tier","userDefinedCloudaicompanionProject":true}`)
}
