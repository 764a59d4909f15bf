package deposit

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseCustody parses "pool=0xaddress" entries into a custody address to
// pool map. An address may hold the funds of one pool only.
func ParseCustody(inputs []string) (map[common.Address]model.PoolID, error) {
	custody := make(map[common.Address]model.PoolID, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		pool, addr, ok := strings.Cut(input, "=")
		pool = strings.TrimSpace(pool)
		addr = strings.TrimSpace(addr)
		if !ok || pool == "" {
			return nil, fmt.Errorf("invalid custody entry %q, want pool=0xaddress", input)
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid custody address: %s", addr)
		}
		address := common.HexToAddress(addr)
		if existing, dup := custody[address]; dup && existing != model.PoolID(pool) {
			return nil, fmt.Errorf("custody address %s mapped to pools %s and %s", address.Hex(), existing, pool)
		}
		custody[address] = model.PoolID(pool)
	}
	return custody, nil
}
