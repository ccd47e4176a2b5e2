package types

import "math/big"

// Account tracks the reward-asset holdings of a single principal. Allowances
// are stored under their own state keys so the account record stays fixed
// size and RLP friendly.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
