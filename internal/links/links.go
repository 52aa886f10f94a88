// Package links issues one-shot signed download references for merge results.
package links

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	ErrLinkNotFound     = errors.New("download link not found or already used")
	ErrLinkExpired      = errors.New("download link expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

func SignURL(path string, expiresAt int64, secret string) string {
	signature := computeSignature(path, expiresAt, secret)
	return fmt.Sprintf("%s?exp=%d&sig=%s", path, expiresAt, signature)
}

func ValidateSignature(path string, expiresAt int64, signature, secret string) bool {
	expected := computeSignature(path, expiresAt, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Ref is an outstanding download reference.
type Ref struct {
	Token       string
	WorkspaceID string
	ResultID    string
	ExpiresAt   time.Time
}

type Service struct {
	secret  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	mu   sync.Mutex
	refs *cache.Cache
}

func NewService(secret, baseURL string, ttl time.Duration) *Service {
	return &Service{
		secret:  secret,
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		refs:    cache.New(ttl, cleanupInterval(ttl)),
	}
}

func Path(token string) string {
	return "/download/" + token
}

// Issue records a new reference to a result and returns its absolute URL.
func (s *Service) Issue(workspaceID, resultID string) (string, Ref) {
	ref := Ref{
		Token:       uuid.NewString(),
		WorkspaceID: workspaceID,
		ResultID:    resultID,
		ExpiresAt:   s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.refs.Set(ref.Token, ref, s.ttl)
	s.mu.Unlock()

	return s.baseURL + SignURL(Path(ref.Token), ref.ExpiresAt.Unix(), s.secret), ref
}

// Redeem validates a reference and removes it, so each one works once.
func (s *Service) Redeem(token string, expires int64, signature string) (Ref, error) {
	if expires < s.now().Unix() {
		return Ref{}, ErrLinkExpired
	}
	if !ValidateSignature(Path(token), expires, signature, s.secret) {
		return Ref{}, ErrInvalidSignature
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.refs.Get(token)
	if !ok {
		return Ref{}, ErrLinkNotFound
	}
	s.refs.Delete(token)

	return item.(Ref), nil
}

// RevokeResult drops every outstanding reference to resultID.
func (s *Service) RevokeResult(resultID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for token, item := range s.refs.Items() {
		if ref, ok := item.Object.(Ref); ok && ref.ResultID == resultID {
			s.refs.Delete(token)
			revoked++
		}
	}
	return revoked
}

// Outstanding counts live references.
func (s *Service) Outstanding() int {
	return s.refs.ItemCount()
}

func computeSignature(path string, expiresAt int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("%s:%d", path, expiresAt)))
	sig := h.Sum(nil)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sig)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}
