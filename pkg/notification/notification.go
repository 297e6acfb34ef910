// Package notification defines the outbound port through which the
// ledger engine announces committed state changes. Delivery transport
// is the collaborator's responsibility; the engine calls each method
// exactly once per committed change.
package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

// Notifier is implemented by a real-time delivery layer outside the
// ledger engine. Implementations must tolerate being called from
// concurrent orchestrator operations.
type Notifier interface {
	// BalanceChanged announces a committed balance change on an account.
	BalanceChanged(ctx context.Context, accountID uuid.UUID, newBalance money.Money)

	// TransactionCreated announces a newly committed transaction to its owner.
	TransactionCreated(ctx context.Context, ownerID uuid.UUID, t *ledger.Transaction)

	// TransactionStatusChanged announces a transaction status transition.
	TransactionStatusChanged(ctx context.Context, transactionID uuid.UUID, status ledger.Status)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

// BalanceChanged implements Notifier.
func (NoopNotifier) BalanceChanged(context.Context, uuid.UUID, money.Money) {}

// TransactionCreated implements Notifier.
func (NoopNotifier) TransactionCreated(context.Context, uuid.UUID, *ledger.Transaction) {}

// TransactionStatusChanged implements Notifier.
func (NoopNotifier) TransactionStatusChanged(context.Context, uuid.UUID, ledger.Status) {}

// SlogNotifier logs every notification. Used by the server process
// until a real delivery layer is registered.
type SlogNotifier struct {
	Logger *slog.Logger
}

// BalanceChanged implements Notifier.
func (n *SlogNotifier) BalanceChanged(_ context.Context, accountID uuid.UUID, newBalance money.Money) {
	n.Logger.Info("balance changed", "accountID", accountID, "balance", newBalance.String())
}

// TransactionCreated implements Notifier.
func (n *SlogNotifier) TransactionCreated(_ context.Context, ownerID uuid.UUID, t *ledger.Transaction) {
	n.Logger.Info("transaction created", "ownerID", ownerID, "reference", t.Reference, "type", t.Type)
}

// TransactionStatusChanged implements Notifier.
func (n *SlogNotifier) TransactionStatusChanged(_ context.Context, transactionID uuid.UUID, status ledger.Status) {
	n.Logger.Info("transaction status changed", "transactionID", transactionID, "status", status)
}

// BalanceEvent is a recorded BalanceChanged call.
type BalanceEvent struct {
	AccountID  uuid.UUID
	NewBalance money.Money
}

// TransactionEvent is a recorded TransactionCreated call.
type TransactionEvent struct {
	OwnerID     uuid.UUID
	Transaction *ledger.Transaction
}

// StatusEvent is a recorded TransactionStatusChanged call.
type StatusEvent struct {
	TransactionID uuid.UUID
	Status        ledger.Status
}

// MemoryNotifier records notifications for assertions in tests.
type MemoryNotifier struct {
	mu           sync.Mutex
	balances     []BalanceEvent
	transactions []TransactionEvent
	statuses     []StatusEvent
}

// NewMemoryNotifier creates an empty recording notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// BalanceChanged implements Notifier.
func (n *MemoryNotifier) BalanceChanged(_ context.Context, accountID uuid.UUID, newBalance money.Money) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances = append(n.balances, BalanceEvent{AccountID: accountID, NewBalance: newBalance})
}

// TransactionCreated implements Notifier.
func (n *MemoryNotifier) TransactionCreated(_ context.Context, ownerID uuid.UUID, t *ledger.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transactions = append(n.transactions, TransactionEvent{OwnerID: ownerID, Transaction: t})
}

// TransactionStatusChanged implements Notifier.
func (n *MemoryNotifier) TransactionStatusChanged(_ context.Context, transactionID uuid.UUID, status ledger.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, StatusEvent{TransactionID: transactionID, Status: status})
}

// BalanceEvents returns a copy of the recorded balance notifications.
func (n *MemoryNotifier) BalanceEvents() []BalanceEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]BalanceEvent, len(n.balances))
	copy(out, n.balances)
	return out
}

// TransactionEvents returns a copy of the recorded transaction notifications.
func (n *MemoryNotifier) TransactionEvents() []TransactionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]TransactionEvent, len(n.transactions))
	copy(out, n.transactions)
	return out
}

// StatusEvents returns a copy of the recorded status notifications.
func (n *MemoryNotifier) StatusEvents() []StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]StatusEvent, len(n.statuses))
	copy(out, n.statuses)
	return out
}
