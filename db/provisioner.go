package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Credentials identify one database user. Values pass through verbatim to
// the database; they are never hashed, logged, or echoed back to a client.
type Credentials struct {
	Username string
	Password string
}

// Rows is the subset of pgx.Rows the executors consume. *pgx.Rows values
// returned by a pooled connection satisfy it directly; tests substitute
// in-memory fakes.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	FieldDescriptions() []pgconn.FieldDescription
	Err() error
	Close()
}

// Lease is an exclusively-owned connection checked out of a pool.
// Release returns it; releasing more than once is a no-op.
type Lease interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Release()
}

// ConnectionSource hands out leases. The HTTP layer depends on this
// interface rather than on pgx so handlers can be exercised without a
// running database.
type ConnectionSource interface {
	// Acquire leases a connection authenticated as the given credentials.
	Acquire(ctx context.Context, creds Credentials) (Lease, error)
	// AcquireShared leases a connection on the bare base DSN, with no
	// per-session credentials. Used only by the anonymous query path.
	AcquireShared(ctx context.Context) (Lease, error)
}

// forbiddenCredentialChars would terminate or extend a descriptor field if
// they appeared inside a spliced credential value.
const forbiddenCredentialChars = ";'\"\\ \t\r\n"

// ValidateCredential rejects values that cannot be safely concatenated
// into a connection descriptor.
func ValidateCredential(value string) error {
	if strings.ContainsAny(value, forbiddenCredentialChars) {
		return ErrBadCredential
	}
	return nil
}

// Descriptor derives the pooling key for a credential pair: the base DSN
// with the credential fields appended. Two sessions holding identical
// credentials map to the same descriptor and share a pool; distinct
// credentials never do.
func Descriptor(base string, creds Credentials) (string, error) {
	if base == "" {
		return "", ErrNoDSN
	}
	if err := ValidateCredential(creds.Username); err != nil {
		return "", fmt.Errorf("username: %w", err)
	}
	if err := ValidateCredential(creds.Password); err != nil {
		return "", fmt.Errorf("password: %w", err)
	}
	return base + " user=" + creds.Username + " password=" + creds.Password, nil
}

// Provisioner maintains one pgx pool per distinct connection descriptor.
// Pools are created lazily on first acquisition and never torn down while
// the process runs; Close drains them all at shutdown. Growing without
// eviction is the documented policy, not an oversight: descriptors are
// bounded by the set of distinct credentials presented.
type Provisioner struct {
	cfg Config

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

var _ ConnectionSource = (*Provisioner)(nil)

// NewProvisioner creates a provisioner over the given base configuration.
func NewProvisioner(cfg Config) *Provisioner {
	return &Provisioner{
		cfg:   cfg,
		pools: make(map[string]*pgxpool.Pool),
	}
}

// Acquire leases a connection for the given credentials, creating the
// descriptor's pool on first use.
func (p *Provisioner) Acquire(ctx context.Context, creds Credentials) (Lease, error) {
	descriptor, err := Descriptor(p.cfg.DSN, creds)
	if err != nil {
		return nil, err
	}
	return p.acquire(ctx, descriptor)
}

// AcquireShared leases a connection from the credential-less pool built on
// the bare base DSN.
func (p *Provisioner) AcquireShared(ctx context.Context) (Lease, error) {
	if p.cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	return p.acquire(ctx, p.cfg.DSN)
}

func (p *Provisioner) acquire(ctx context.Context, descriptor string) (Lease, error) {
	pool, err := p.pool(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &poolLease{conn: conn}, nil
}

func (p *Provisioner) pool(ctx context.Context, descriptor string) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[descriptor]; ok {
		return pool, nil
	}

	poolCfg, err := pgxpool.ParseConfig(descriptor)
	if err != nil {
		return nil, fmt.Errorf("parse connection descriptor: %w", err)
	}
	if p.cfg.PoolMax > 0 {
		poolCfg.MaxConns = p.cfg.PoolMax
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	p.pools[descriptor] = pool
	slog.Debug("Created connection pool.", "pools", len(p.pools))
	return pool, nil
}

// PoolCount returns the number of distinct descriptor pools created so far.
func (p *Provisioner) PoolCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pools)
}

// Close drains every pool. Used during shutdown.
func (p *Provisioner) Close() {
	p.mu.Lock()
	pools := p.pools
	p.pools = make(map[string]*pgxpool.Pool)
	p.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}

// poolLease wraps a pooled pgx connection. The sync.Once guard makes
// Release idempotent so racing exit paths cannot double-return the lease.
type poolLease struct {
	conn *pgxpool.Conn
	once sync.Once
}

func (l *poolLease) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := l.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (l *poolLease) Release() {
	l.once.Do(func() {
		l.conn.Release()
	})
}
