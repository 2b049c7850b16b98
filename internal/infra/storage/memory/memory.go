// Package memory provides a transactional in-memory Store for tests and
// database-less runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/walletnotify/internal/core/domain"
	"github.com/vietddude/walletnotify/internal/infra/storage"
)

var _ storage.Store = (*MemoryStorage)(nil)

type state struct {
	credits   map[string]domain.Credit // by ID
	refs      map[string]string        // credit ref id -> ID
	debits    map[string]domain.Debit
	debitRefs map[string]string
	addresses map[string]domain.Address
	balances  []domain.BalanceSnapshot
}

func newState() *state {
	return &state{
		credits:   make(map[string]domain.Credit),
		refs:      make(map[string]string),
		debits:    make(map[string]domain.Debit),
		debitRefs: make(map[string]string),
		addresses: make(map[string]domain.Address),
	}
}

func (s *state) clone() *state {
	c := &state{
		credits:   make(map[string]domain.Credit, len(s.credits)),
		refs:      make(map[string]string, len(s.refs)),
		debits:    make(map[string]domain.Debit, len(s.debits)),
		debitRefs: make(map[string]string, len(s.debitRefs)),
		addresses: make(map[string]domain.Address, len(s.addresses)),
		balances:  append([]domain.BalanceSnapshot(nil), s.balances...),
	}
	for k, v := range s.credits {
		c.credits[k] = v
	}
	for k, v := range s.refs {
		c.refs[k] = v
	}
	for k, v := range s.debits {
		c.debits[k] = v
	}
	for k, v := range s.debitRefs {
		c.debitRefs[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	return c
}

// op is a write replayed against the committed state at commit time.
type op func(*state) error

// MemoryStorage is a Store whose units of work are applied atomically.
// Writes inside a unit of work are visible to that unit only until Commit,
// where they are replayed under the store lock.
type MemoryStorage struct {
	mu        sync.RWMutex
	state     *state
	balanceID atomic.Int64

	// commitHook, when set, runs before a commit is published; an error aborts it.
	commitHook func() error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: newState()}
}

// SetCommitHook installs a hook that can fail commits.
func (m *MemoryStorage) SetCommitHook(hook func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitHook = hook
}

func (m *MemoryStorage) Credits() storage.CreditRepository {
	return &creditRepo{tx: m.autocommit()}
}

func (m *MemoryStorage) Debits() storage.DebitRepository {
	return &debitRepo{tx: m.autocommit()}
}

func (m *MemoryStorage) Addresses() storage.AddressRepository {
	return &addressRepo{store: m}
}

func (m *MemoryStorage) Balances() storage.BalanceRepository {
	return &balanceRepo{tx: m.autocommit()}
}

func (m *MemoryStorage) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	m.mu.RLock()
	view := m.state.clone()
	m.mu.RUnlock()
	return &unitOfWork{store: m, view: view}, nil
}

func (m *MemoryStorage) Health(ctx context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) nextBalanceID() int64 {
	return m.balanceID.Add(1)
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

type txn interface {
	read(func(*state))
	write(op) error
}

// autocommitTx applies each write directly to the committed state.
type autocommitTx struct {
	store *MemoryStorage
}

func (m *MemoryStorage) autocommit() *autocommitTx {
	return &autocommitTx{store: m}
}

func (a *autocommitTx) read(fn func(*state)) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	fn(a.store.state)
}

func (a *autocommitTx) write(o op) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	next := a.store.state.clone()
	if err := o(next); err != nil {
		return err
	}
	a.store.state = next
	return nil
}

type unitOfWork struct {
	store *MemoryStorage
	mu    sync.Mutex
	view  *state
	ops   []op
	done  bool
}

func (u *unitOfWork) read(fn func(*state)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u.view)
}

func (u *unitOfWork) write(o op) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return storage.ErrTxDone
	}
	if err := o(u.view); err != nil {
		return err
	}
	u.ops = append(u.ops, o)
	return nil
}

func (u *unitOfWork) Credits() storage.CreditRepository   { return &creditRepo{tx: u} }
func (u *unitOfWork) Debits() storage.DebitRepository     { return &debitRepo{tx: u} }
func (u *unitOfWork) Balances() storage.BalanceRepository { return &balanceRepo{tx: u} }

func (u *unitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return storage.ErrTxDone
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	for _, o := range u.ops {
		if err := o(next); err != nil {
			return err
		}
	}
	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			return err
		}
	}
	s.state = next
	return nil
}

func (u *unitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.ops = nil
	return nil
}

// -----------------------------------------------------------------------------
// Credit Repository
// -----------------------------------------------------------------------------

type creditRepo struct {
	tx txn
}

func (r *creditRepo) Create(ctx context.Context, credit *domain.Credit) error {
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = now
	}
	credit.UpdatedAt = now
	c := *credit
	return r.tx.write(func(s *state) error {
		if _, ok := s.refs[c.RefID]; ok {
			return storage.ErrDuplicateRefID
		}
		s.credits[c.ID] = c
		s.refs[c.RefID] = c.ID
		return nil
	})
}

func (r *creditRepo) GetByRefID(ctx context.Context, refID string) (*domain.Credit, error) {
	var out *domain.Credit
	r.tx.read(func(s *state) {
		if id, ok := s.refs[refID]; ok {
			c := s.credits[id]
			out = &c
		}
	})
	return out, nil
}

func (r *creditRepo) ListUnconfirmed(ctx context.Context, network string) ([]*domain.Credit, error) {
	var out []*domain.Credit
	r.tx.read(func(s *state) {
		for _, c := range s.credits {
			if c.Network == network && c.State == domain.CreditStateUnconfirmed {
				c := c
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *creditRepo) Complete(ctx context.Context, id string, refID string) (bool, error) {
	var updated bool
	now := time.Now().UTC()
	err := r.tx.write(func(s *state) error {
		updated = false
		c, ok := s.credits[id]
		if !ok || c.State != domain.CreditStateUnconfirmed {
			return nil
		}
		oldRef := c.RefID
		if err := c.Complete(refID); err != nil {
			return err
		}
		if c.RefID != oldRef {
			if owner, taken := s.refs[c.RefID]; taken && owner != id {
				return storage.ErrDuplicateRefID
			}
			delete(s.refs, oldRef)
			s.refs[c.RefID] = id
		}
		c.UpdatedAt = now
		s.credits[id] = c
		updated = true
		return nil
	})
	return updated, err
}

// -----------------------------------------------------------------------------
// Debit Repository
// -----------------------------------------------------------------------------

type debitRepo struct {
	tx txn
}

func (r *debitRepo) Create(ctx context.Context, debit *domain.Debit) error {
	if debit.ID == "" {
		debit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if debit.CreatedAt.IsZero() {
		debit.CreatedAt = now
	}
	debit.UpdatedAt = now
	d := *debit
	return r.tx.write(func(s *state) error {
		if d.RefID != "" {
			if _, ok := s.debitRefs[d.RefID]; ok {
				return storage.ErrDuplicateRefID
			}
			s.debitRefs[d.RefID] = d.ID
		}
		s.debits[d.ID] = d
		return nil
	})
}

func (r *debitRepo) GetByRefID(ctx context.Context, refID string) (*domain.Debit, error) {
	var out *domain.Debit
	r.tx.read(func(s *state) {
		if id, ok := s.debitRefs[refID]; ok {
			d := s.debits[id]
			out = &d
		}
	})
	return out, nil
}

func (r *debitRepo) ListByTxID(ctx context.Context, txid string) ([]*domain.Debit, error) {
	var out []*domain.Debit
	r.tx.read(func(s *state) {
		for _, d := range s.debits {
			if d.TxID == txid {
				d := d
				out = append(out, &d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *debitRepo) Complete(ctx context.Context, id string, refID string) (bool, error) {
	var updated bool
	now := time.Now().UTC()
	err := r.tx.write(func(s *state) error {
		updated = false
		d, ok := s.debits[id]
		if !ok || d.State != domain.DebitStateUnconfirmed {
			return nil
		}
		if owner, taken := s.debitRefs[refID]; taken && owner != id {
			return storage.ErrDuplicateRefID
		}
		if d.RefID != "" {
			delete(s.debitRefs, d.RefID)
		}
		d.State = domain.DebitStateComplete
		d.RefID = refID
		d.UpdatedAt = now
		s.debits[id] = d
		s.debitRefs[refID] = id
		updated = true
		return nil
	})
	return updated, err
}

// -----------------------------------------------------------------------------
// Address Repository
// -----------------------------------------------------------------------------

type addressRepo struct {
	store *MemoryStorage
}

func (r *addressRepo) Save(ctx context.Context, address *domain.Address) error {
	if address.CreatedAt.IsZero() {
		address.CreatedAt = time.Now().UTC()
	}
	a := *address
	return r.store.autocommit().write(func(s *state) error {
		s.addresses[a.Address] = a
		return nil
	})
}

func (r *addressRepo) Get(ctx context.Context, address string) (*domain.Address, error) {
	var out *domain.Address
	r.store.autocommit().read(func(s *state) {
		if a, ok := s.addresses[address]; ok {
			out = &a
		}
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Balance Repository
// -----------------------------------------------------------------------------

type balanceRepo struct {
	tx txn
}

func (r *balanceRepo) store() *MemoryStorage {
	switch t := r.tx.(type) {
	case *unitOfWork:
		return t.store
	case *autocommitTx:
		return t.store
	}
	return nil
}

func (r *balanceRepo) Append(ctx context.Context, snapshot *domain.BalanceSnapshot) error {
	snapshot.ID = r.store().nextBalanceID()
	if snapshot.Time.IsZero() {
		snapshot.Time = time.Now().UTC()
	}
	b := *snapshot
	return r.tx.write(func(s *state) error {
		s.balances = append(s.balances, b)
		return nil
	})
}

func (r *balanceRepo) Latest(ctx context.Context, network string) (*domain.BalanceSnapshot, error) {
	var out *domain.BalanceSnapshot
	r.tx.read(func(s *state) {
		for i := range s.balances {
			b := s.balances[i]
			if b.Network != network {
				continue
			}
			if b.Newer(out) {
				out = &b
			}
		}
	})
	return out, nil
}
