package contract

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type Status uint8

const (
	StatusOpen Status = iota
	StatusPending
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusPending:
		return "Pending"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// OnChainRequest mirrors the getRequest tuple. Field names match the ABI components.
type OnChainRequest struct {
	Id              *big.Int       `json:"id"`
	Creator         common.Address `json:"creator"`
	PropertyName    string         `json:"propertyName"`
	LoanAmount      *big.Int       `json:"loanAmount"`
	Description     string         `json:"description"`
	CollateralType  string         `json:"collateralType"`
	LoanTerm        *big.Int       `json:"loanTerm"`
	YieldPreference *big.Int       `json:"yieldPreference"`
	ImageHash       string         `json:"imageHash"`
	CreatedAt       *big.Int       `json:"createdAt"`
	Status          uint8          `json:"status"`
}

// Reader performs view calls against the contract through a node, never the wallet.
type Reader struct {
	contract *bind.BoundContract
}

func (c *Contract) Reader(caller bind.ContractCaller) *Reader {
	return &Reader{contract: bind.NewBoundContract(c.address, *c.abi, caller, nil, nil)}
}

func (r *Reader) GetRequest(ctx context.Context, requestID *big.Int) (OnChainRequest, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetRequest, requestID); err != nil {
		return OnChainRequest{}, errors.Wrapf(err, "getRequest(%s)", requestID)
	}
	return *abi.ConvertType(out[0], new(OnChainRequest)).(*OnChainRequest), nil
}

func (r *Reader) GetUserRequests(ctx context.Context, user common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetUserRequests, user); err != nil {
		return nil, errors.Wrapf(err, "getUserRequests(%s)", user.Hex())
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (r *Reader) GetTotalRequests(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetTotal); err != nil {
		return nil, errors.Wrap(err, "getTotalRequests")
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (r *Reader) Owner(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodOwner); err != nil {
		return common.Address{}, errors.Wrap(err, "owner")
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// RequestsByCreator loads every request created by user.
func (r *Reader) RequestsByCreator(ctx context.Context, user common.Address) ([]OnChainRequest, error) {
	ids, err := r.GetUserRequests(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]OnChainRequest, 0, len(ids))
	for _, id := range ids {
		req, err := r.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}
