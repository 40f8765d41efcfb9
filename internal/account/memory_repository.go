package account

import (
	"context"
	"errors"
	"sync"
)

type memoryDirectory struct {
	mu       sync.RWMutex
	byNumber map[int]Account
}

// NewMemoryDirectory constructs an in-memory directory, used by the
// standalone terminal and by tests.
func NewMemoryDirectory(accounts ...Account) (Directory, error) {
	dir := &memoryDirectory{byNumber: make(map[int]Account, len(accounts))}
	seenCards := make(map[int64]struct{}, len(accounts))
	for _, acct := range accounts {
		if _, exists := dir.byNumber[acct.Number]; exists {
			return nil, errors.New("duplicate account number")
		}
		if _, exists := seenCards[acct.CardID]; exists {
			return nil, errors.New("duplicate card id")
		}
		if acct.Balance < 0 {
			return nil, errors.New("negative opening balance")
		}
		dir.byNumber[acct.Number] = acct
		seenCards[acct.CardID] = struct{}{}
	}
	return dir, nil
}

func (d *memoryDirectory) FindByNumber(_ context.Context, number int) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.byNumber[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (d *memoryDirectory) FindByCardID(_ context.Context, cardID int64) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, acct := range d.byNumber {
		if acct.CardID == cardID {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

func (d *memoryDirectory) UpdateBalance(_ context.Context, number int, balance int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, ok := d.byNumber[number]
	if !ok {
		return ErrNotFound
	}
	acct.Balance = balance
	d.byNumber[number] = acct
	return nil
}
