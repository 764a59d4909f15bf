package model

// Operation kinds accepted in a journal.
const (
	OpAccumulate  = "accumulate"
	OpAddShare    = "add_share"
	OpRemoveShare = "remove_share"
	OpSetShare    = "set_share"
	OpClaim       = "claim"
	OpClaimAll    = "claim_all"
	OpTransfer    = "transfer"
)

// Operation is one journal line. Amounts are base-10 strings.
type Operation struct {
	Seq      uint64 `json:"seq"`
	Kind     string `json:"op"`
	Pool     string `json:"pool"`
	Account  string `json:"account,omitempty"`
	To       string `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Source   string `json:"source,omitempty"`
}
