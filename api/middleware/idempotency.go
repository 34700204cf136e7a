package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/gigescrow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gigescrow-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from a stored record.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen   = 255
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotencyRule matches a method and a slash-separated path pattern where
// "*" stands for exactly one segment.
type idempotencyRule struct {
	method  string
	pattern []string
	ttl     time.Duration
}

func rule(method, pattern string, ttl time.Duration) idempotencyRule {
	return idempotencyRule{method: method, pattern: splitPath(pattern), ttl: ttl}
}

var idempotencyRules = []idempotencyRule{
	rule(http.MethodPost, "/api/v1/reviews", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/notifications/*/read", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/admin/coupons", defaultIdempotencyTTL),

	// Money-moving writes keep their records for a week.
	rule(http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL),
	rule(http.MethodPatch, "/api/v1/orders/*/status", criticalIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/orders/*/milestones/*/complete", criticalIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/disputes", criticalIdempotencyTTL),
	rule(http.MethodPatch, "/api/v1/admin/disputes/*", criticalIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/withdrawals", criticalIdempotencyTTL),
	rule(http.MethodPatch, "/api/v1/admin/withdrawals/*", criticalIdempotencyTTL),
}

type idempotencyRecord struct {
	Status      int    `json:"status"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
	Pending     bool   `json:"pending,omitempty"`
}

var (
	errKeyInProgress = pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress")
	errKeyReused     = pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
)

// Idempotency makes the configured write routes safe to retry. The first
// request with a key reserves it before the handler runs, so a concurrent
// duplicate is rejected rather than moving money twice. The outcome is then
// stored and replayed for later duplicates. Server errors and panics release
// the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Group middleware runs before chi resolves the route pattern,
			// so rules match the concrete path.
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			switch {
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			stored, err := store.Get(ctx, key)
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			case stored != "":
				replay(ctx, logg, w, stored, requestHash)
				return
			}

			reservation, _ := json.Marshal(idempotencyRecord{RequestHash: requestHash, Pending: true})
			reserved, err := store.SetNX(ctx, key, string(reservation), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				responses.WriteError(ctx, logg, w, errKeyInProgress)
				return
			}

			// The record outlives a client that hangs up mid-request.
			persistCtx := context.WithoutCancel(ctx)
			release := func() {
				if err := store.Del(persistCtx, key); err != nil && logg != nil {
					logg.Error(persistCtx, "release idempotency key", err)
				}
			}

			capture := &responseCapture{ResponseWriter: w}
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						release()
						panic(rec)
					}
				}()
				next.ServeHTTP(capture, r)
			}()

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				release()
				return
			}

			payload, _ := json.Marshal(idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				ContentType: capture.Header().Get("Content-Type"),
				RequestHash: requestHash,
			})
			if err := store.Set(persistCtx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(persistCtx, "persist idempotency record", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(ctx, logg, w, errKeyReused)
		return
	case record.Pending:
		responses.WriteError(ctx, logg, w, errKeyInProgress)
		return
	}

	body, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(body)
}

// requestScope keeps keys from different callers and routes apart.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		r.Method,
		strings.TrimSuffix(r.URL.Path, "/"),
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, false
	}
	for _, candidate := range idempotencyRules {
		if candidate.method == method && matchSegments(candidate.pattern, segments) {
			return candidate.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, want := range pattern {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
