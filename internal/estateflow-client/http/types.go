package http

import (
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/session"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/submit"
)

type errorBody struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	session.Session
	Role session.Role `json:"role"`
}

// sessionError carries the user-facing message plus the session as it stands after the failure.
type sessionError struct {
	Error   string          `json:"error"`
	Session session.Session `json:"session"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

type roleResponse struct {
	Role session.Role `json:"role"`
}

type networkResponse struct {
	Ok      bool                 `json:"ok"`
	Error   string               `json:"error,omitempty"`
	Network chains.NetworkConfig `json:"network"`
}

type submitRequest struct {
	PropertyName    string `json:"propertyName"`
	LoanAmount      string `json:"loanAmount"`
	Description     string `json:"description"`
	CollateralType  string `json:"collateralType"`
	LoanTerm        string `json:"loanTerm"`
	YieldPreference string `json:"yieldPreference"`
	PropertyImage   string `json:"propertyImage"`
}

func (r submitRequest) form() submit.FormData {
	return submit.FormData{
		PropertyName:    r.PropertyName,
		LoanAmount:      r.LoanAmount,
		Description:     r.Description,
		CollateralType:  r.CollateralType,
		LoanTerm:        r.LoanTerm,
		YieldPreference: r.YieldPreference,
		PropertyImage:   r.PropertyImage,
	}
}

type submitError struct {
	Error string       `json:"error"`
	State submit.State `json:"state"`
}

type onChainRequest struct {
	contract.OnChainRequest
	StatusName string `json:"statusName"`
}

type totalResponse struct {
	Total string `json:"total"`
}

type headResponse struct {
	Number     string `json:"number"`
	Hash       string `json:"hash"`
	Timestamp  uint64 `json:"timestamp"`
	ReceivedAt int64  `json:"receivedAt"`
}
