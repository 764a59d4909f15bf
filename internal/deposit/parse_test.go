package deposit

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/model"
)

func TestParseCustody(t *testing.T) {
	custody, err := ParseCustody([]string{
		" staking = 0x1111111111111111111111111111111111111111 ",
		"",
		"lp=0x2222222222222222222222222222222222222222",
	})
	require.NoError(t, err)
	assert.Equal(t, map[common.Address]model.PoolID{
		common.HexToAddress("0x1111111111111111111111111111111111111111"): "staking",
		common.HexToAddress("0x2222222222222222222222222222222222222222"): "lp",
	}, custody)
}

func TestParseCustodyInvalid(t *testing.T) {
	for _, input := range []string{
		"0x1111111111111111111111111111111111111111",
		"=0x1111111111111111111111111111111111111111",
		"staking=0x1234",
	} {
		_, err := ParseCustody([]string{input})
		assert.Error(t, err, input)
	}

	_, err := ParseCustody([]string{
		"a=0x1111111111111111111111111111111111111111",
		"b=0x1111111111111111111111111111111111111111",
	})
	assert.Error(t, err)
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{"0x1111111111111111111111111111111111111111", " "})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = ParseAddresses([]string{"nope"})
	assert.Error(t, err)
}
