package remote

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// pairingStore verifies a long-lived pairing secret against its bcrypt
// hash and issues short-lived bearer tokens for subsequent requests, so
// the secret itself never travels on the wire more than once per pairing.
type pairingStore struct {
	secretHash []byte
	mu         sync.Mutex
	sessions   map[string]time.Time
}

func newPairingStore(secretHash string) *pairingStore {
	return &pairingStore{
		secretHash: []byte(secretHash),
		sessions:   make(map[string]time.Time),
	}
}

// Pair checks secret against the stored hash and, on success, mints a new
// session token valid for sessionTTL.
func (p *pairingStore) Pair(secret string) (string, bool) {
	if len(p.secretHash) == 0 {
		return "", false
	}
	if bcrypt.CompareHashAndPassword(p.secretHash, []byte(secret)) != nil {
		return "", false
	}

	token := uuid.NewString()
	p.mu.Lock()
	p.sessions[token] = time.Now().Add(sessionTTL)
	p.mu.Unlock()
	return token, true
}

// Valid reports whether token was issued by Pair and has not expired. An
// expired token is evicted on lookup.
func (p *pairingStore) Valid(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	expiry, ok := p.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(p.sessions, token)
		return false
	}
	return true
}

// Revoke invalidates a single session token, e.g. on explicit unpair.
func (p *pairingStore) Revoke(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, token)
}

// HashSecret bcrypt-hashes a plaintext pairing secret for storage in
// Config.Remote.PairingSecretHash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

func (p *pairingStore) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || !p.Valid(token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
