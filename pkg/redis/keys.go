package redis

import "strings"

const defaultKeyPrefix = "storefront"

// Keyspace builds the namespaced keys shared by every process talking to the
// same Redis database.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// Idempotency marks a processed delivery, e.g. a webhook event id.
func (k Keyspace) Idempotency(scope, id string) string {
	return k.join("idem", scope, id)
}

// RateLimit holds a fixed-window counter.
func (k Keyspace) RateLimit(policy, dimension, subject string) string {
	return k.join("rl", policy, dimension, subject)
}

// Session holds the refresh record for one access token id.
func (k Keyspace) Session(accessID string) string {
	return k.join("sess", accessID)
}

// UserSessions indexes the access ids issued to a user.
func (k Keyspace) UserSessions(userID string) string {
	return k.join("user-sess", userID)
}

// Lock guards work that must run on a single worker.
func (k Keyspace) Lock(name string) string {
	return k.join("lock", name)
}

func (k Keyspace) join(parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
