// Package contract encodes calls to and decodes results from the EstateFlow registry contract.
package contract

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	methodCreateRequest   = "createEstateFlowRequest"
	methodGetRequest      = "getRequest"
	methodGetUserRequests = "getUserRequests"
	methodGetTotal        = "getTotalRequests"
	methodOwner           = "owner"

	EventRequestCreated = "EstateFlowRequestCreated"
	EventStatusUpdated  = "RequestStatusUpdated"
)

var ErrNotRequestCreated = errors.New("log is not an EstateFlowRequestCreated event")

// CreateParams are the createEstateFlowRequest arguments in contract units.
type CreateParams struct {
	PropertyName    string
	LoanAmount      *big.Int
	Description     string
	CollateralType  string
	LoanTerm        *big.Int
	YieldPreference *big.Int
	ImageHash       string
}

type RequestCreated struct {
	RequestID    *big.Int
	Creator      common.Address
	PropertyName string
	LoanAmount   *big.Int
	Timestamp    *big.Int
	TxHash       common.Hash
}

type StatusUpdated struct {
	RequestID *big.Int
	OldStatus uint8
	NewStatus uint8
	Timestamp *big.Int
}

type Contract struct {
	address common.Address
	abi     *abi.ABI
}

func New(address common.Address) (*Contract, error) {
	parsed, err := EstateFlowMetaData.GetAbi()
	if err != nil {
		return nil, errors.Wrap(err, "parse EstateFlow abi")
	}
	if parsed == nil {
		return nil, errors.New("GetABI returned nil")
	}
	return &Contract{address: address, abi: parsed}, nil
}

func (c *Contract) Address() common.Address { return c.address }

func (c *Contract) ABI() *abi.ABI { return c.abi }

func (c *Contract) PackCreateRequest(p CreateParams) ([]byte, error) {
	if p.LoanAmount == nil || p.LoanTerm == nil || p.YieldPreference == nil {
		return nil, errors.New("createEstateFlowRequest: numeric arguments must be set")
	}
	data, err := c.abi.Pack(methodCreateRequest,
		p.PropertyName,
		p.LoanAmount,
		p.Description,
		p.CollateralType,
		p.LoanTerm,
		p.YieldPreference,
		p.ImageHash,
	)
	if err != nil {
		return nil, errors.Wrap(err, "pack createEstateFlowRequest")
	}
	return data, nil
}

// ParseRequestCreated decodes an EstateFlowRequestCreated log emitted by this contract.
func (c *Contract) ParseRequestCreated(lg types.Log) (*RequestCreated, error) {
	ev := c.abi.Events[EventRequestCreated]
	if lg.Address != c.address || len(lg.Topics) < 3 || lg.Topics[0] != ev.ID {
		return nil, ErrNotRequestCreated
	}

	out, err := c.abi.Unpack(EventRequestCreated, lg.Data)
	if err != nil {
		return nil, errors.Wrap(err, "unpack EstateFlowRequestCreated")
	}
	if len(out) != 3 {
		return nil, errors.Newf("EstateFlowRequestCreated: expected 3 data fields, got %d", len(out))
	}

	return &RequestCreated{
		RequestID:    new(big.Int).SetBytes(lg.Topics[1].Bytes()),
		Creator:      common.BytesToAddress(lg.Topics[2].Bytes()),
		PropertyName: *abi.ConvertType(out[0], new(string)).(*string),
		LoanAmount:   *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		Timestamp:    *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		TxHash:       lg.TxHash,
	}, nil
}

// FirstRequestCreated returns the first EstateFlowRequestCreated event among logs.
func (c *Contract) FirstRequestCreated(logs []types.Log) (*RequestCreated, bool) {
	for _, lg := range logs {
		ev, err := c.ParseRequestCreated(lg)
		if err == nil {
			return ev, true
		}
	}
	return nil, false
}

func (c *Contract) ParseStatusUpdated(lg types.Log) (*StatusUpdated, error) {
	ev := c.abi.Events[EventStatusUpdated]
	if lg.Address != c.address || len(lg.Topics) < 2 || lg.Topics[0] != ev.ID {
		return nil, errors.New("log is not a RequestStatusUpdated event")
	}

	out, err := c.abi.Unpack(EventStatusUpdated, lg.Data)
	if err != nil {
		return nil, errors.Wrap(err, "unpack RequestStatusUpdated")
	}
	if len(out) != 3 {
		return nil, errors.Newf("RequestStatusUpdated: expected 3 data fields, got %d", len(out))
	}

	return &StatusUpdated{
		RequestID: new(big.Int).SetBytes(lg.Topics[1].Bytes()),
		OldStatus: *abi.ConvertType(out[0], new(uint8)).(*uint8),
		NewStatus: *abi.ConvertType(out[1], new(uint8)).(*uint8),
		Timestamp: *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
	}, nil
}
