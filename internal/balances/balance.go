// Package balances defines the account balance value type shared across
// the indexer and the signed-delta arithmetic used to derive rows from it.
package balances

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Balance is the liquid/locked balance pair of an account at a point in
// chain history. Both fields are non-negative by construction; NEAR
// balances fit comfortably inside 256 bits.
type Balance struct {
	Liquid *uint256.Int
	Locked *uint256.Int
}

// Zero returns the (0, 0) balance, used for deleted or never-seen accounts.
func Zero() Balance {
	return Balance{Liquid: uint256.NewInt(0), Locked: uint256.NewInt(0)}
}

// New builds a Balance from decimal string amounts, as returned by the
// archival RPC.
func New(liquid, locked string) (Balance, error) {
	l, err := uint256.FromDecimal(liquid)
	if err != nil {
		return Balance{}, err
	}
	k, err := uint256.FromDecimal(locked)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Liquid: l, Locked: k}, nil
}

// IsZero reports whether both components are zero.
func (b Balance) IsZero() bool {
	return b.Liquid.IsZero() && b.Locked.IsZero()
}

// Delta is the signed change between two balances, widened to big.Int
// before subtracting so that a decrease never wraps around zero.
type Delta struct {
	Liquid *big.Int
	Locked *big.Int
}

// Sub computes next - prev as a signed Delta. uint256.Int values are
// widened to big.Int first: the spec calls for i256-equivalent
// subtraction, and big.Int is the only signed arbitrary-precision type
// in scope since no third-party signed-bigint package is used anywhere
// in the retrieval pack (see DESIGN.md).
func Sub(next, prev Balance) Delta {
	return Delta{
		Liquid: new(big.Int).Sub(next.Liquid.ToBig(), prev.Liquid.ToBig()),
		Locked: new(big.Int).Sub(next.Locked.ToBig(), prev.Locked.ToBig()),
	}
}

// ZeroDelta is the (0, 0) delta carried by mirror rows.
func ZeroDelta() Delta {
	return Delta{Liquid: big.NewInt(0), Locked: big.NewInt(0)}
}
