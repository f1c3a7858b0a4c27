package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

const uniqueViolationCode = "23505"

// pgExecutor abstracts pgxpool.Pool and pgx.Tx so repositories run the same
// statements inside and outside transactions.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// mapInsertError converts unique violations to the repository conflict
// sentinel and wraps everything else.
func mapInsertError(err error, verb string) error {
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return fmt.Errorf("%s: %w", verb, err)
}

// Repositories bundles the PostgreSQL-backed repositories sharing one pool.
type Repositories struct {
	pool        *pgxpool.Pool
	Tenants     *TenantRepository
	Memberships *MembershipRepository
	Permissions *PermissionRepository
	Roles       *RoleRepository
	Assignments *AssignmentRepository
	Overrides   *OverrideRepository
	Grants      *GrantRepository
}

// NewRepositories constructs every repository against the shared pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		pool:        pool,
		Tenants:     NewTenantRepository(pool),
		Memberships: NewMembershipRepository(pool),
		Permissions: NewPermissionRepository(pool),
		Roles:       NewRoleRepository(pool),
		Assignments: NewAssignmentRepository(pool),
		Overrides:   NewOverrideRepository(pool),
		Grants:      NewGrantRepository(pool),
	}
}

// TxManager runs lifecycle writes within a single pgx transaction.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager constructs a transaction manager over the shared pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

type txRepositories struct {
	tenants     *TenantRepository
	memberships *MembershipRepository
}

func (r txRepositories) Tenants() port.TenantRepository         { return r.tenants }
func (r txRepositories) Memberships() port.MembershipRepository { return r.memberships }

// WithinTransaction begins a transaction, hands fn repositories bound to it,
// and commits when fn returns nil. Any error rolls the transaction back so a
// partial write is never observable.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(repos port.TxRepositories) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	repos := txRepositories{
		tenants:     NewTenantRepository(m.pool).WithTx(tx),
		memberships: NewMembershipRepository(m.pool).WithTx(tx),
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback transaction: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.TxManager = (*TxManager)(nil)
