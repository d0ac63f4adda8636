package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// ErrMissingCredential aborts a build when an endpoint requires
// username/password authentication but the file carries no credential.
var ErrMissingCredential = errors.New("authentication mode UsernamePassword requires an encrypted credential")

// Build groups the flat node sequence into the live hierarchy. Endpoints are
// created in first-seen order, subscriptions in first-seen publishing-interval
// order within their endpoint. Connection settings come from the first entry
// per endpoint; diverging settings on later entries are logged, not applied.
// Entries with an unresolved identifier are skipped; a missing required
// credential is fatal and aborts the build.
func (r *Registry) Build(entries []domain.FlatNodeConfig) error {
	r.structureMu.Lock()
	defer r.structureMu.Unlock()
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()

	endpoints := distinctEndpoints(entries)
	for _, endpoint := range endpoints {
		group := entriesForEndpoint(entries, endpoint)
		if err := r.buildEndpointLocked(endpoint, group); err != nil {
			return fmt.Errorf("endpoint %s: %w", endpoint, err)
		}
	}
	return nil
}

func distinctEndpoints(entries []domain.FlatNodeConfig) []string {
	seen := make(map[string]bool, len(entries))
	var out []string
	for _, e := range entries {
		key := strings.ToLower(e.EndpointURL)
		if !seen[key] {
			seen[key] = true
			out = append(out, e.EndpointURL)
		}
	}
	return out
}

func entriesForEndpoint(entries []domain.FlatNodeConfig, endpoint string) []domain.FlatNodeConfig {
	var out []domain.FlatNodeConfig
	for _, e := range entries {
		if strings.EqualFold(e.EndpointURL, endpoint) {
			out = append(out, e)
		}
	}
	return out
}

// buildEndpointLocked requires structureMu and sessionsMu to be held.
func (r *Registry) buildEndpointLocked(endpoint string, entries []domain.FlatNodeConfig) error {
	first := entries[0]
	if first.AuthMode == domain.AuthUsernamePassword && first.EncryptedCredential == nil {
		return ErrMissingCredential
	}
	r.warnDivergence(endpoint, entries)

	session := r.findSessionLocked(endpoint)
	if session == nil {
		session = &Session{
			id:                  uuid.New(),
			endpointURL:         endpoint,
			useSecurity:         first.UseSecurity,
			authMode:            first.AuthMode,
			encryptedCredential: first.EncryptedCredential,
			state:               ports.SessionDisconnected,
		}
		r.sessions = append(r.sessions, session)
		r.emit(domain.AuditSessionCreated, endpoint, "")
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	for _, key := range distinctIntervals(entries) {
		sub := findSubscriptionLocked(session, key)
		if sub == nil {
			sub = &Subscription{publishingInterval: key}
			session.subscriptions = append(session.subscriptions, sub)
		}
		for _, e := range entriesForInterval(entries, key) {
			r.addItemLocked(session, sub, e)
		}
	}
	return nil
}

func (r *Registry) warnDivergence(endpoint string, entries []domain.FlatNodeConfig) {
	first := entries[0]
	for _, e := range entries[1:] {
		if e.AuthMode != first.AuthMode || e.UseSecurity != first.UseSecurity ||
			!equalCredential(e.EncryptedCredential, first.EncryptedCredential) {
			r.obs.LogWarn("endpoint_settings_divergence",
				ports.Field{Key: "endpoint", Value: endpoint},
				ports.Field{Key: "node", Value: e.ID.String()})
			r.obs.IncCounter("publisher_endpoint_divergence_total", 1)
		}
	}
}

func equalCredential(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intervalKey(e domain.FlatNodeConfig) domain.OptInt {
	if e.PublishingInterval == nil {
		return domain.OptInt{}
	}
	return domain.OptInt{Value: *e.PublishingInterval, Explicit: true}
}

func distinctIntervals(entries []domain.FlatNodeConfig) []domain.OptInt {
	seen := make(map[domain.OptInt]bool, len(entries))
	var out []domain.OptInt
	for _, e := range entries {
		key := intervalKey(e)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func entriesForInterval(entries []domain.FlatNodeConfig, key domain.OptInt) []domain.FlatNodeConfig {
	var out []domain.FlatNodeConfig
	for _, e := range entries {
		if intervalKey(e) == key {
			out = append(out, e)
		}
	}
	return out
}

func findSubscriptionLocked(s *Session, key domain.OptInt) *Subscription {
	for _, sub := range s.subscriptions {
		if sub.publishingInterval == key {
			return sub
		}
	}
	return nil
}

// addItemLocked requires all three locks to be held. It skips unresolved
// identifiers and duplicates, and increments the global version exactly once
// per item actually appended.
func (r *Registry) addItemLocked(session *Session, sub *Subscription, e domain.FlatNodeConfig) {
	if e.ID.IsZero() {
		r.obs.RecordSkippedNode(session.endpointURL, e.OriginalID, fmt.Errorf("unresolved node id"))
		return
	}
	for _, existing := range sub.items {
		if existing.id.String() == e.ID.String() {
			return
		}
	}

	item := &MonitoredItem{
		id:                e.ID,
		endpointURL:       session.endpointURL,
		samplingInterval:  optInt(e.SamplingInterval, r.defaults.SamplingInterval),
		displayName:       optString(e.DisplayName, e.ID.String()),
		heartbeatInterval: optInt(e.HeartbeatInterval, r.defaults.HeartbeatInterval),
		skipFirst:         optBool(e.SkipFirst, r.defaults.SkipFirst),
		state:             domain.ItemConfigured,
	}
	sub.items = append(sub.items, item)
	r.version.Add(1)
	r.emit(domain.AuditItemAdded, session.endpointURL, item.id.String())
}

func optInt(v *int, def int) domain.OptInt {
	if v == nil {
		return domain.OptInt{Value: def}
	}
	return domain.OptInt{Value: *v, Explicit: true}
}

func optString(v *string, def string) domain.OptString {
	if v == nil {
		return domain.OptString{Value: def}
	}
	return domain.OptString{Value: *v, Explicit: true}
}

func optBool(v *bool, def bool) domain.OptBool {
	if v == nil {
		return domain.OptBool{Value: def}
	}
	return domain.OptBool{Value: *v, Explicit: true}
}
