package repository

import "context"

// Transactor runs fn inside a storage transaction. Repositories called with
// the context handed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
