package deposit

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20TransferABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

var (
	erc20TransferABI     abi.ABI
	erc20TransferABIOnce sync.Once
	erc20TransferABIErr  error
)

// ERC20TransferABI returns the parsed ERC-20 Transfer event ABI.
func ERC20TransferABI() (abi.ABI, error) {
	erc20TransferABIOnce.Do(func() {
		erc20TransferABI, erc20TransferABIErr = abi.JSON(strings.NewReader(erc20TransferABIJSON))
	})
	return erc20TransferABI, erc20TransferABIErr
}
