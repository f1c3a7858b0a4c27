package port

import "context"

// TxRepositories exposes the repositories that participate in multi-row
// lifecycle writes, bound to a single transaction.
type TxRepositories interface {
	Tenants() TenantRepository
	Memberships() MembershipRepository
}

// TxManager runs fn with repositories bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise, so a
// partial write is never observable.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(repos TxRepositories) error) error
}
