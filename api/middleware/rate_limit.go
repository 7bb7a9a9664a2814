package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

// rateLimiterStore counts attempts in fixed windows; pkg/redis.Client
// namespaces the scope under its rate limit prefix.
type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// rateRule counts one dimension of a request. key returns "" when the rule
// does not apply to the request.
type rateRule struct {
	dimension string
	limit     int
	key       func(r *http.Request) (string, error)
}

// RateLimitPolicy is a named set of fixed-window rules sharing one window.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []rateRule
}

// LoginRateLimitPolicy throttles credential attempts per client IP and per
// submitted email.
func LoginRateLimitPolicy(window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	p := RateLimitPolicy{name: "login", window: window}
	if ipLimit > 0 {
		p.rules = append(p.rules, rateRule{dimension: "ip", limit: ipLimit, key: func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}})
	}
	if emailLimit > 0 {
		p.rules = append(p.rules, rateRule{dimension: "email", limit: emailLimit, key: emailKey})
	}
	return p
}

// OrganizationWriteRateLimitPolicy caps mutating requests per acting
// organization so one church or group cannot starve the shared stock tables.
// It must run after Auth.
func OrganizationWriteRateLimitPolicy(window time.Duration, limit int) RateLimitPolicy {
	p := RateLimitPolicy{name: "org_write", window: window}
	if limit > 0 {
		p.rules = append(p.rules, rateRule{dimension: "organization", limit: limit, key: func(r *http.Request) (string, error) {
			if !isWrite(r.Method) {
				return "", nil
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok || actor.OrganizationID == uuid.Nil {
				return "", nil
			}
			return actor.OrganizationID.String(), nil
		}})
	}
	return p
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

// RateLimit rejects requests once any rule of the policy exceeds its limit
// within the window.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range policy.rules {
				key, err := rule.key(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				if key == "" {
					continue
				}
				scope := fmt.Sprintf("%s:%s:%s", policy.name, rule.dimension, key)
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(rule.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, rule, key, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, rule rateRule, key string, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"dimension":      rule.dimension,
			"key":            key,
			"attempts":       count,
			"limit":          rule.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// emailKey hashes the email in a JSON body and restores the body for the
// handler.
func emailKey(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return "", nil
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:]), nil
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
