package requests

import (
	"time"

	"github.com/cockroachdb/errors"
)

type Status string

var ErrInvalidStatus = errors.New("invalid request status")

const (
	StatusOpen      Status = "Open"
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", errors.Mark(errors.Newf("unknown request status %q", s), ErrInvalidStatus)
	}
	return st, nil
}

// Request is one cached funding ask. The cache is advisory: TxHash and BlockchainID are
// whatever the submitting client saw and are never checked against chain state.
type Request struct {
	ID              string    `json:"id"`
	Property        string    `json:"property"`
	Rate            float64   `json:"rate"`
	Months          int       `json:"months"`
	Status          Status    `json:"status"`
	ProofSubmitted  int       `json:"proofSubmitted"`
	TotalProofs     int       `json:"totalProofs"`
	LoanAmount      float64   `json:"loanAmount"`
	Image           string    `json:"image"`
	Description     string    `json:"description,omitempty"`
	CollateralType  string    `json:"collateralType,omitempty"`
	YieldPreference float64   `json:"yieldPreference,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Creator         string    `json:"creator,omitempty"`
	TxHash          string    `json:"txHash,omitempty"`
	BlockchainID    string    `json:"blockchainId,omitempty"`

	// LocalEcho marks entries merged optimistically after a submission.
	LocalEcho bool `json:"localEcho,omitempty"`
}

// Draft is a new request before the store assigns id, status, proof count and creation time.
type Draft struct {
	Property        string  `json:"property"`
	Rate            float64 `json:"rate"`
	Months          int     `json:"months"`
	TotalProofs     int     `json:"totalProofs"`
	LoanAmount      float64 `json:"loanAmount"`
	Image           string  `json:"image"`
	Description     string  `json:"description,omitempty"`
	CollateralType  string  `json:"collateralType,omitempty"`
	YieldPreference float64 `json:"yieldPreference,omitempty"`
	Creator         string  `json:"creator,omitempty"`
	TxHash          string  `json:"txHash,omitempty"`
	BlockchainID    string  `json:"blockchainId,omitempty"`
	LocalEcho       bool    `json:"localEcho,omitempty"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Property        *string  `json:"property,omitempty"`
	Rate            *float64 `json:"rate,omitempty"`
	Months          *int     `json:"months,omitempty"`
	Status          *Status  `json:"status,omitempty"`
	ProofSubmitted  *int     `json:"proofSubmitted,omitempty"`
	TotalProofs     *int     `json:"totalProofs,omitempty"`
	LoanAmount      *float64 `json:"loanAmount,omitempty"`
	Image           *string  `json:"image,omitempty"`
	Description     *string  `json:"description,omitempty"`
	CollateralType  *string  `json:"collateralType,omitempty"`
	YieldPreference *float64 `json:"yieldPreference,omitempty"`
	Creator         *string  `json:"creator,omitempty"`
	TxHash          *string  `json:"txHash,omitempty"`
	BlockchainID    *string  `json:"blockchainId,omitempty"`
}

func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return errors.Mark(errors.Newf("unknown request status %q", string(*p.Status)), ErrInvalidStatus)
	}
	return nil
}

func (p Patch) apply(r Request) Request {
	if p.Property != nil {
		r.Property = *p.Property
	}
	if p.Rate != nil {
		r.Rate = *p.Rate
	}
	if p.Months != nil {
		r.Months = *p.Months
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.ProofSubmitted != nil {
		r.ProofSubmitted = *p.ProofSubmitted
	}
	if p.TotalProofs != nil {
		r.TotalProofs = *p.TotalProofs
	}
	if p.LoanAmount != nil {
		r.LoanAmount = *p.LoanAmount
	}
	if p.Image != nil {
		r.Image = *p.Image
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.CollateralType != nil {
		r.CollateralType = *p.CollateralType
	}
	if p.YieldPreference != nil {
		r.YieldPreference = *p.YieldPreference
	}
	if p.Creator != nil {
		r.Creator = *p.Creator
	}
	if p.TxHash != nil {
		r.TxHash = *p.TxHash
	}
	if p.BlockchainID != nil {
		r.BlockchainID = *p.BlockchainID
	}
	return r
}

type Stats struct {
	Total      int     `json:"total"`
	Open       int     `json:"open"`
	Pending    int     `json:"pending"`
	Completed  int     `json:"completed"`
	Rejected   int     `json:"rejected"`
	TotalValue float64 `json:"totalValue"`
}

// ImageRef pairs a property with its image path, for cache inspection.
type ImageRef struct {
	Property string `json:"property"`
	Image    string `json:"image"`
}

type Inspection struct {
	Backend string     `json:"backend"`
	Key     string     `json:"key"`
	Present bool       `json:"present"`
	Raw     string     `json:"raw,omitempty"`
	Valid   bool       `json:"valid"`
	Count   int        `json:"count"`
	Images  []ImageRef `json:"images,omitempty"`
}
