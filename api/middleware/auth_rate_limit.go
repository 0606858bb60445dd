package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// emailPeekLimit bounds how much of an auth body is buffered to find the email.
const emailPeekLimit = 16 << 10

// RateCounter is a fixed-window counter store; pkg/redis.Client satisfies it.
type RateCounter interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
	Keys() redis.Keyspace
}

// AuthRateLimitPolicy caps attempts per client IP and per submitted email
// within one window. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type AuthRateLimitPolicies struct {
	Login  AuthRateLimitPolicy
	Signup AuthRateLimitPolicy
	Reset  AuthRateLimitPolicy
}

func PoliciesFromConfig(cfg config.AuthRateLimitConfig) AuthRateLimitPolicies {
	return AuthRateLimitPolicies{
		Login:  AuthRateLimitPolicy{Name: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit},
		Signup: AuthRateLimitPolicy{Name: "signup", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit},
		Reset:  AuthRateLimitPolicy{Name: "reset", Window: cfg.ResetWindow, PerIP: cfg.ResetIPLimit, PerEmail: cfg.ResetEmailLimit},
	}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

func (p AuthRateLimitPolicy) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(p.Window.Seconds())))
}

// AuthRateLimit rejects requests with 429 once a counter passes its limit.
// Emails are hashed before they reach the counter key or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, counter RateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || !policy.active() {
			return next
		}
		keys := counter.Keys()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					if !hit(ctx, w, logg, counter, policy, keys.RateLimit(policy.Name, "ip", ip), "ip", policy.PerIP) {
						return
					}
				}
			}

			if policy.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if email != "" {
					if !hit(ctx, w, logg, counter, policy, keys.RateLimit(policy.Name, "email", digest(email)), "email", policy.PerEmail) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hit bumps one counter and writes the rejection when it is over limit. It
// reports whether the request may continue.
func hit(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, counter RateCounter, policy AuthRateLimitPolicy, key, dimension string, limit int) bool {
	count, err := counter.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Upstream(err, "rate limiting"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": dimension,
			"attempts":  count,
			"limit":     limit,
		}), "auth rate limit exceeded")
	}
	w.Header().Set("Retry-After", policy.retryAfter())
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// peekEmail reads the email field from a JSON body and leaves the body
// readable for the next handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, emailPeekLimit))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
