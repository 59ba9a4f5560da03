// Package memstore is an in-memory stand-in for the Postgres repositories.
// It backs router-level tests and mirrors the repositories' error contracts,
// including cascading organization deletes and transaction rollback.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
)

type txKey struct{}

type state struct {
	orgs    map[uuid.UUID]models.Organization
	users   map[uuid.UUID]models.User
	invites map[uuid.UUID]models.Invite
	tasks   map[uuid.UUID]models.Task
	emails  []models.EmailLog
}

func (s *state) clone() *state {
	return &state{
		orgs:    maps.Clone(s.orgs),
		users:   maps.Clone(s.users),
		invites: maps.Clone(s.invites),
		tasks:   maps.Clone(s.tasks),
		emails:  append([]models.EmailLog(nil), s.emails...),
	}
}

// DB holds every table. Use its typed views as repositories.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time

	Users   *Users
	Orgs    *Orgs
	Invites *Invites
	Tasks   *Tasks
	Emails  *Emails
}

// New creates an empty store.
func New() *DB {
	db := &DB{
		st: &state{
			orgs:    make(map[uuid.UUID]models.Organization),
			users:   make(map[uuid.UUID]models.User),
			invites: make(map[uuid.UUID]models.Invite),
			tasks:   make(map[uuid.UUID]models.Task),
		},
		now: time.Now,
	}
	db.Users = &Users{db: db}
	db.Orgs = &Orgs{db: db}
	db.Invites = &Invites{db: db}
	db.Tasks = &Tasks{db: db}
	db.Emails = &Emails{db: db}
	return db
}

// SetClock overrides the time source used for timestamps and invite expiry.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// InTx serializes fn against other transactions and restores the previous state if fn fails.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.st.clone()
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		db.st = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) lock() (*state, time.Time, func()) {
	db.mu.Lock()
	return db.st, db.now().UTC(), db.mu.Unlock
}

func ptr[T any](v T) *T { return &v }
