package domain

// Store is the unit-of-work boundary over the persistence layer. Repositories
// obtained inside WithTransaction share one atomic transaction; services use
// that to keep ledger mutations and status transitions consistent.
type Store interface {
	Ledger() LedgerStore
	Transactions() TransactionRepository
	WithTransaction(fn func(Store) error) error
}
