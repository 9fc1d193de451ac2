package activitymap

import (
	"strings"
	"time"

	auth "github.com/goliatone/go-keepin-auth"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const (
	defaultChannel = "auth"
	defaultActorID = "anonymous"
	eventPrefix    = "auth."
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Action     string         `json:"action"`
	Outcome    string         `json:"outcome"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
// "auth.token.refresh.failure" becomes action "token.refresh" with outcome
// "failure". Events without an outcome suffix count as a success.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	action, outcome := splitVerb(string(event.EventType))

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.UserID), options.actorFallback),
		Verb:       string(event.EventType),
		Action:     action,
		Outcome:    outcome,
		Channel:    options.channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when the event has no user id.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock overrides the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func splitVerb(verb string) (string, string) {
	action := strings.TrimPrefix(strings.TrimSpace(verb), eventPrefix)

	switch {
	case strings.HasSuffix(action, "."+OutcomeFailure):
		return strings.TrimSuffix(action, "."+OutcomeFailure), OutcomeFailure
	case strings.HasSuffix(action, "."+OutcomeSuccess):
		return strings.TrimSuffix(action, "."+OutcomeSuccess), OutcomeSuccess
	}

	// auth.password.changed, auth.profile.updated
	if i := strings.LastIndex(action, "."); i > 0 {
		return action[:i], OutcomeSuccess
	}

	return action, OutcomeSuccess
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
