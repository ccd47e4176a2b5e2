package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"campchain/core/types"
)

var (
	ErrNilState              = errors.New("token: state not configured")
	ErrInvalidSymbol         = errors.New("token: invalid symbol")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrInvalidAmount         = errors.New("token: amount must be non-negative")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// State is the narrow persistence surface the token ledger requires.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger implements the fungible reward asset: per-account balances plus
// owner/spender allowances. It exposes the pull (TransferFrom) and push
// (Transfer) operations the campaign engine depends on.
type Ledger struct {
	st     State
	symbol string

	// mu serializes balance and allowance mutation; without it two
	// concurrent transfers touching the same account lose updates.
	mu sync.Mutex
}

// NewLedger creates a token ledger for the provided symbol backed by the
// supplied state manager.
func NewLedger(st State, symbol string) (*Ledger, error) {
	if st == nil {
		return nil, ErrNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return &Ledger{st: st, symbol: normalized}, nil
}

// Symbol returns the canonical token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// NormalizeSymbol canonicalises a token symbol to trimmed uppercase.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrInvalidSymbol
	}
	return trimmed, nil
}

func (l *Ledger) accountKey(addr [20]byte) []byte {
	key := make([]byte, 0, len(l.symbol)+len("token//account/")+len(addr))
	key = append(key, []byte("token/"+l.symbol+"/account/")...)
	return append(key, addr[:]...)
}

func (l *Ledger) allowanceKey(owner, spender [20]byte) []byte {
	key := make([]byte, 0, len(l.symbol)+len("token//allowance/")+2*len(owner))
	key = append(key, []byte("token/"+l.symbol+"/allowance/")...)
	key = append(key, owner[:]...)
	return append(key, spender[:]...)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (l *Ledger) getAccount(addr [20]byte) (*types.Account, error) {
	acc := new(types.Account)
	ok, err := l.st.KVGet(l.accountKey(addr), acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ensureAccount(nil), nil
	}
	return ensureAccount(acc), nil
}

func (l *Ledger) putAccount(addr [20]byte, acc *types.Account) error {
	return l.st.KVPut(l.accountKey(addr), ensureAccount(acc))
}

// BalanceOf returns the balance held by the supplied address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.st == nil {
		return nil, ErrNilState
	}
	acc, err := l.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(acc.Balance), nil
}

// Mint credits freshly issued tokens to the supplied address. Genesis-only in
// practice; the daemon invokes it when seeding configured balances.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return ErrNilState
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(to)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	return l.putAccount(to, acc)
}

// Approve records the amount a spender may pull from the owner's balance.
// Re-approval overwrites the previous allowance.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return ErrNilState
	}
	if owner == ([20]byte{}) || spender == ([20]byte{}) {
		return ErrZeroAddress
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.KVPut(l.allowanceKey(owner, spender), amt)
}

// Allowance returns the remaining amount the spender may pull from the owner.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.st == nil {
		return nil, ErrNilState
	}
	return l.allowance(owner, spender)
}

func (l *Ledger) allowance(owner, spender [20]byte) (*big.Int, error) {
	remaining := new(big.Int)
	ok, err := l.st.KVGet(l.allowanceKey(owner, spender), remaining)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return remaining, nil
}

// Transfer moves tokens from one balance to another. Zero amounts succeed
// without touching state.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return ErrNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, to, amount)
}

// transfer is Transfer without the lock; callers must hold l.mu.
func (l *Ledger) transfer(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	fromAcc, err := l.getAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromAcc.Balance, amt)
	}
	toAcc, err := l.getAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.putAccount(from, fromAcc); err != nil {
		return err
	}
	return l.putAccount(to, toAcc)
}

// TransferFrom pulls tokens from the owner's balance on behalf of the spender,
// consuming allowance. The allowance check happens before any balance moves so
// a failed pull leaves state untouched.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return ErrNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining, err := l.allowance(from, spender)
	if err != nil {
		return err
	}
	if remaining.Cmp(amt) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, remaining, amt)
	}
	if err := l.transfer(from, to, amt); err != nil {
		return err
	}
	return l.st.KVPut(l.allowanceKey(from, spender), new(big.Int).Sub(remaining, amt))
}
