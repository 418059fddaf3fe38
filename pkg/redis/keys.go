package redis

import "strings"

const keyNamespace = "fb"

// keyspace is the second segment of every key, after the namespace.
type keyspace string

const (
	idempotencySpace   keyspace = "idempotency"
	rateLimitSpace     keyspace = "rate_limit"
	sessionSpace       keyspace = "session"
	stateSpace         keyspace = "state"
	passwordResetSpace keyspace = "password_reset"
	confirmationSpace  keyspace = "email_confirm"
	lockSpace          keyspace = "lock"
	channelSpace       keyspace = "channel"
)

// key joins parts under the namespace. Blank parts are dropped.
func (k keyspace) key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(string(k))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return idempotencySpace.key(scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return rateLimitSpace.key(scope)
}

// AccessSessionKey holds the session behind one access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return sessionSpace.key("access", accessID)
}

// StateKey holds per-user state such as carts and wishlists.
func (c *Client) StateKey(kind, userID string) string {
	return stateSpace.key(kind, userID)
}

func (c *Client) PasswordResetKey(token string) string {
	return passwordResetSpace.key(token)
}

func (c *Client) ConfirmationKey(token string) string {
	return confirmationSpace.key(token)
}

func (c *Client) LockKey(parts ...string) string {
	return lockSpace.key(parts...)
}

// NotificationChannel carries one user's live notifications.
func (c *Client) NotificationChannel(userID string) string {
	return channelSpace.key("notifications", userID)
}
