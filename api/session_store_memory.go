package api

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/sqlconsole/db"
	"github.com/jmcleod/sqlconsole/internal/uuid"
)

const defaultSessionTTL = 8 * time.Hour

// EnvSessionTTL overrides the session lifetime, in milliseconds.
const EnvSessionTTL = "SQLCONSOLE_SESSION_TTL_MS"

// sessionTTLFromEnv is consulted once per store operation, so the TTL is
// stable within an operation but a changed environment is not picked up
// mid-process in any coordinated way.
func sessionTTLFromEnv() time.Duration {
	v := os.Getenv(EnvSessionTTL)
	if v == "" {
		return defaultSessionTTL
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return defaultSessionTTL
	}
	return time.Duration(ms) * time.Millisecond
}

// memoryRecord keeps the password in a memguard Enclave so it is
// encrypted at rest in process memory and wiped on delete.
type memoryRecord struct {
	username  string
	password  *memguard.Enclave
	expiresAt time.Time
}

// MemoryCredentialStore is a thread-safe in-memory CredentialStore.
// Sessions are process-wide state: all are lost on restart, and expired
// records accumulate until their next lookup evicts them.
type MemoryCredentialStore struct {
	mu   sync.Mutex
	data map[string]memoryRecord
	ttl  func() time.Duration
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// NewMemoryCredentialStore creates an in-memory credential store.
// A nil ttl func uses the environment-configured session TTL.
func NewMemoryCredentialStore(ttl func() time.Duration) *MemoryCredentialStore {
	if ttl == nil {
		ttl = sessionTTLFromEnv
	}
	return &MemoryCredentialStore{
		data: make(map[string]memoryRecord),
		ttl:  ttl,
	}
}

func (s *MemoryCredentialStore) record(creds db.Credentials) memoryRecord {
	return memoryRecord{
		username:  creds.Username,
		password:  memguard.NewEnclave([]byte(creds.Password)),
		expiresAt: time.Now().Add(s.ttl()),
	}
}

// Create allocates a new token and stores the credentials under it.
func (s *MemoryCredentialStore) Create(creds db.Credentials) string {
	token := uuid.New()
	rec := s.record(creds)
	s.mu.Lock()
	s.data[token] = rec
	s.mu.Unlock()
	return token
}

// Get returns the credentials for token, refreshing the sliding expiry.
func (s *MemoryCredentialStore) Get(token string) (db.Credentials, bool) {
	s.mu.Lock()
	rec, ok := s.data[token]
	if !ok {
		s.mu.Unlock()
		return db.Credentials{}, false
	}
	if time.Now().After(rec.expiresAt) {
		delete(s.data, token)
		s.mu.Unlock()
		return db.Credentials{}, false
	}
	rec.expiresAt = time.Now().Add(s.ttl())
	s.data[token] = rec
	s.mu.Unlock()

	buf, err := rec.password.Open()
	if err != nil {
		s.Delete(token)
		return db.Credentials{}, false
	}
	password := strings.Clone(buf.String())
	buf.Destroy()

	return db.Credentials{Username: rec.username, Password: password}, true
}

// Set overwrites the record for token with fresh credentials and expiry.
func (s *MemoryCredentialStore) Set(token string, creds db.Credentials) {
	rec := s.record(creds)
	s.mu.Lock()
	s.data[token] = rec
	s.mu.Unlock()
}

// Delete removes the record for token.
func (s *MemoryCredentialStore) Delete(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}

// TTL reports the currently configured session lifetime.
func (s *MemoryCredentialStore) TTL() time.Duration {
	return s.ttl()
}
