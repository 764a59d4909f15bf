package rewards

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestMulDiv(t *testing.T) {
	two128 := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	two255 := new(uint256.Int).Lsh(uint256.NewInt(1), 255)

	tests := []struct {
		name    string
		x, y, d *uint256.Int
		want    uint256.Int
	}{
		{name: "floor", x: uint256.NewInt(7), y: uint256.NewInt(10), d: uint256.NewInt(3), want: *uint256.NewInt(23)},
		{name: "zero divisor", x: uint256.NewInt(7), y: uint256.NewInt(10), d: uint256.NewInt(0), want: uint256.Int{}},
		{name: "wide intermediate", x: two128, y: two128, d: two128, want: *two128},
		{name: "saturates", x: two255, y: uint256.NewInt(4), d: uint256.NewInt(1), want: maxAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mulDiv(*tt.x, *tt.y, *tt.d)
			assert.Equal(t, tt.want.Dec(), got.Dec())
		})
	}
}

func TestSaturatingArithmetic(t *testing.T) {
	got := saturatingAdd(maxAmount, *uint256.NewInt(1))
	assert.True(t, got.Eq(&maxAmount))

	got = saturatingSub(*uint256.NewInt(3), *uint256.NewInt(5))
	assert.True(t, got.IsZero())

	got = saturatingSub(*uint256.NewInt(5), *uint256.NewInt(3))
	assert.Equal(t, uint64(2), got.Uint64())
}

func TestRewardToWithdrawIsCapped(t *testing.T) {
	// Entitlement 50 minus offset 10 would be 40, but only 25 is unpaid.
	got := rewardToWithdraw(*uint256.NewInt(50), *uint256.NewInt(100), *uint256.NewInt(100), *uint256.NewInt(10), *uint256.NewInt(75))
	assert.Equal(t, uint64(25), got.Uint64())

	got = rewardToWithdraw(*uint256.NewInt(50), *uint256.NewInt(100), *uint256.NewInt(100), *uint256.NewInt(60), *uint256.NewInt(0))
	assert.True(t, got.IsZero())
}
