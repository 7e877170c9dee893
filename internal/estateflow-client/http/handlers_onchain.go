package http

import (
	"math/big"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
)

func (s *Server) requireOnChain(c *gin.Context) {
	if s.onChain == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("no chain rpc configured"))
		return
	}
	c.Next()
}

func withStatusName(r contract.OnChainRequest) onChainRequest {
	return onChainRequest{OnChainRequest: r, StatusName: contract.Status(r.Status).String()}
}

// GET /onchain/requests?creator=0x...
func (s *Server) onChainRequests(c *gin.Context) {
	creator := c.Query("creator")
	if !common.IsHexAddress(creator) {
		abortWithError(c, http.StatusBadRequest, errors.Newf("invalid creator address %q", creator))
		return
	}
	list, err := s.onChain.RequestsByCreator(c.Request.Context(), common.HexToAddress(creator))
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	out := make([]onChainRequest, 0, len(list))
	for _, r := range list {
		out = append(out, withStatusName(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) onChainRequest(c *gin.Context) {
	id, ok := new(big.Int).SetString(c.Param("id"), 10)
	if !ok || id.Sign() < 0 {
		abortWithError(c, http.StatusBadRequest, errors.Newf("invalid request id %q", c.Param("id")))
		return
	}
	r, err := s.onChain.GetRequest(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, withStatusName(r))
}

func (s *Server) onChainTotal(c *gin.Context) {
	total, err := s.onChain.GetTotalRequests(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, totalResponse{Total: total.String()})
}

// GET /onchain/head reports the cached latest block of the read node.
func (s *Server) onChainHead(c *gin.Context) {
	h, at, err := s.onChain.LatestHeader(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, headResponse{
		Number:     h.Number.String(),
		Hash:       h.Hash().Hex(),
		Timestamp:  h.Time,
		ReceivedAt: at.UnixMilli(),
	})
}

// GET /onchain/node probes the read node. A chain mismatch is reported with 409.
func (s *Server) onChainNode(c *gin.Context) {
	info, err := s.onChain.Probe(c.Request.Context())
	switch {
	case errors.Is(err, chains.ErrChainMismatch):
		c.JSON(http.StatusConflict, info)
	case err != nil:
		abortWithError(c, http.StatusBadGateway, err)
	default:
		c.JSON(http.StatusOK, info)
	}
}
