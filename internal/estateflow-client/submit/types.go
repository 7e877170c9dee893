package submit

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
)

// FormData is the request form as typed by the user.
type FormData struct {
	PropertyName    string `json:"propertyName"`
	LoanAmount      string `json:"loanAmount"`
	Description     string `json:"description"`
	CollateralType  string `json:"collateralType"`
	LoanTerm        string `json:"loanTerm"`
	YieldPreference string `json:"yieldPreference"`
	// PropertyImage is the chosen image (path or URL); empty when none was picked.
	PropertyImage string `json:"propertyImage,omitempty"`
}

// State mirrors what a submit form shows: spinner, inline error and last tx hash.
type State struct {
	IsSubmitting bool   `json:"isSubmitting"`
	Error        string `json:"error,omitempty"`
	TxHash       string `json:"txHash,omitempty"`
}

type Transaction struct {
	Hash          string `json:"hash"`
	Confirmed     bool   `json:"confirmed"`
	ReceiptStatus uint64 `json:"receiptStatus"`
	BlockNumber   uint64 `json:"blockNumber,omitempty"`
	ExplorerURL   string `json:"explorerUrl,omitempty"`
}

type Result struct {
	RequestID   string            `json:"requestId"`
	Transaction Transaction       `json:"transaction"`
	Request     *requests.Request `json:"request,omitempty"`
}

type sendTxArgs struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// rpcReceipt keeps only the receipt fields the submitter reads; wallets differ on the rest.
type rpcReceipt struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	BlockNumber     *hexutil.Big    `json:"blockNumber"`
	Status          *hexutil.Uint64 `json:"status"`
	Logs            []rpcLog        `json:"logs"`
}

type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

func (r rpcReceipt) logs() []types.Log {
	out := make([]types.Log, 0, len(r.Logs))
	for _, l := range r.Logs {
		out = append(out, types.Log{
			Address: l.Address,
			Topics:  l.Topics,
			Data:    l.Data,
			TxHash:  r.TransactionHash,
		})
	}
	return out
}
