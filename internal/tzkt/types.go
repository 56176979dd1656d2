package tzkt

import (
	"encoding/json"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// AccountRef is the {address, alias} pair the indexer embeds everywhere.
type AccountRef struct {
	Address string `json:"address"`
	Alias   string `json:"alias,omitempty"`
}

// Parameter is the entrypoint call payload of a transaction. Value is kept
// opaque; the parameter walkers probe it later.
type Parameter struct {
	Entrypoint string          `json:"entrypoint"`
	Value      json.RawMessage `json:"value"`
}

// Transaction is the wire shape of /v1/operations/transactions rows.
type Transaction struct {
	ID           int64       `json:"id"`
	Hash         string      `json:"hash"`
	Level        int64       `json:"level"`
	Timestamp    time.Time   `json:"timestamp"`
	Sender       *AccountRef `json:"sender"`
	Target       *AccountRef `json:"target"`
	Amount       int64       `json:"amount"`
	Parameter    *Parameter  `json:"parameter"`
	Status       string      `json:"status"`
	HasInternals bool        `json:"hasInternals"`
}

// ToRaw converts a wire transaction to the persisted model.
func (t Transaction) ToRaw() models.RawTransaction {
	out := models.RawTransaction{
		ID:           t.ID,
		Hash:         t.Hash,
		Level:        t.Level,
		Timestamp:    t.Timestamp.UTC(),
		Amount:       t.Amount,
		Status:       t.Status,
		HasInternals: t.HasInternals,
	}
	if t.Sender != nil {
		out.Sender = t.Sender.Address
	}
	if t.Target != nil {
		out.Target = t.Target.Address
	}
	if t.Parameter != nil {
		out.Entrypoint = t.Parameter.Entrypoint
		out.Parameters = t.Parameter.Value
	}
	return out
}

// TokenRef identifies a token inside a transfer row.
type TokenRef struct {
	Contract AccountRef `json:"contract"`
	TokenID  string     `json:"tokenId"`
	Standard string     `json:"standard"`
}

// TokenTransfer is the wire shape of /v1/tokens/transfers rows.
type TokenTransfer struct {
	ID            int64       `json:"id"`
	Level         int64       `json:"level"`
	Timestamp     time.Time   `json:"timestamp"`
	Token         TokenRef    `json:"token"`
	From          *AccountRef `json:"from"`
	To            *AccountRef `json:"to"`
	Amount        string      `json:"amount"`
	TransactionID *int64      `json:"transactionId"`
}

// ToRaw converts a wire transfer to the persisted model. A nil From marks
// a mint.
func (t TokenTransfer) ToRaw() models.RawTokenTransfer {
	out := models.RawTokenTransfer{
		ID:            t.ID,
		Level:         t.Level,
		Timestamp:     t.Timestamp.UTC(),
		TokenContract: t.Token.Contract.Address,
		TokenID:       t.Token.TokenID,
		TokenStandard: t.Token.Standard,
		Amount:        t.Amount,
	}
	if t.From != nil {
		out.FromAddress = t.From.Address
	}
	if t.To != nil {
		out.ToAddress = t.To.Address
	}
	if t.TransactionID != nil {
		out.TransactionID = *t.TransactionID
	}
	return out
}

type balanceRow struct {
	Balance int64 `json:"balance"`
	Level   int64 `json:"level"`
}

// Contract is the wire shape of /v1/contracts/{address}.
type Contract struct {
	Address     string   `json:"address"`
	Alias       string   `json:"alias,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Tzips       []string `json:"tzips,omitempty"`
	TokensCount int64    `json:"tokensCount,omitempty"`
}

// HasTzip reports whether the contract declares a standard tag ("fa2",
// "fa12", ...).
func (c *Contract) HasTzip(tag string) bool {
	for _, t := range c.Tzips {
		if t == tag {
			return true
		}
	}
	return false
}

// Token is the wire shape of /v1/tokens rows.
type Token struct {
	Contract    AccountRef      `json:"contract"`
	TokenID     string          `json:"tokenId"`
	Standard    string          `json:"standard"`
	TotalSupply string          `json:"totalSupply"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Account is the wire shape of /v1/accounts/{address}.
type Account struct {
	Address         string `json:"address"`
	Alias           string `json:"alias,omitempty"`
	Type            string `json:"type,omitempty"` // "user", "contract", ...
	NumTransactions int64  `json:"numTransactions,omitempty"`
}
