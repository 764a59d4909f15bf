package rewards

import "github.com/holiman/uint256"

var maxAmount = func() uint256.Int {
	var z uint256.Int
	z.SetAllOne()
	return z
}()

func saturatingAdd(a, b uint256.Int) uint256.Int {
	var z uint256.Int
	if _, overflow := z.AddOverflow(&a, &b); overflow {
		return maxAmount
	}
	return z
}

func saturatingSub(a, b uint256.Int) uint256.Int {
	if a.Lt(&b) {
		return uint256.Int{}
	}
	var z uint256.Int
	z.Sub(&a, &b)
	return z
}

// mulDiv returns floor(x*y/d). The product is kept at 512 bits and the
// quotient saturates at 2^256-1. A zero divisor yields zero.
func mulDiv(x, y, d uint256.Int) uint256.Int {
	if d.IsZero() {
		return uint256.Int{}
	}
	var z uint256.Int
	if _, overflow := z.MulDivOverflow(&x, &y, &d); overflow {
		return maxAmount
	}
	return z
}

func minAmount(a, b uint256.Int) uint256.Int {
	if a.Lt(&b) {
		return a
	}
	return b
}

func amountOf(v *uint256.Int) uint256.Int {
	if v == nil {
		return uint256.Int{}
	}
	return *v
}

// rewardToWithdraw is what a claim pays: the account's entitlement minus its
// offset, capped by what the pool has not yet paid out.
func rewardToWithdraw(share, totalReward, totalShares, withdrawn, totalWithdrawn uint256.Int) uint256.Int {
	entitled := mulDiv(share, totalReward, totalShares)
	return minAmount(saturatingSub(entitled, withdrawn), saturatingSub(totalReward, totalWithdrawn))
}
