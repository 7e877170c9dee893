package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
)

// GET /requests?status=Open
func (s *Server) listRequests(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		list []requests.Request
		err  error
	)
	if q := c.Query("status"); q != "" {
		var st requests.Status
		if st, err = requests.ParseStatus(q); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		list, err = s.requests.ByStatus(ctx, st)
	} else {
		list, err = s.requests.List(ctx)
	}
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if list == nil {
		list = []requests.Request{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) requestStats(c *gin.Context) {
	stats, err := s.requests.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) inspectRequests(c *gin.Context) {
	in, err := s.requests.Inspect(c.Request.Context())
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, in)
}

func (s *Server) getRequest(c *gin.Context) {
	r, err := s.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PATCH /requests/:id
func (s *Server) updateRequest(c *gin.Context) {
	var patch requests.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	r, err := s.requests.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DELETE /requests/:id is idempotent.
func (s *Server) deleteRequest(c *gin.Context) {
	if err := s.requests.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resetRequests(c *gin.Context) {
	s.afterMutation(c, s.requests.Reset(c.Request.Context()))
}

func (s *Server) clearRequests(c *gin.Context) {
	s.afterMutation(c, s.requests.Clear(c.Request.Context()))
}

func (s *Server) refreshRequests(c *gin.Context) {
	s.afterMutation(c, s.requests.Refresh(c.Request.Context()))
}

// afterMutation answers with the list as it stands after a bulk operation.
func (s *Server) afterMutation(c *gin.Context, err error) {
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	s.listRequests(c)
}

// POST /requests/submit
func (s *Server) submitRequest(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	// Once the wallet has broadcast the transaction, a client that goes away must not
	// abandon the receipt wait or the cache entry.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()
	stop := context.AfterFunc(s.work, cancel)
	defer stop()

	res, err := s.submitter.Submit(ctx, req.form())
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, submitError{Error: err.Error(), State: s.submitter.State()})
		return
	}
	log.Info("request submitted via api", "id", res.RequestID, "hash", res.Transaction.Hash)
	c.JSON(http.StatusCreated, res)
}

// GET /requests/submission
func (s *Server) submissionState(c *gin.Context) {
	c.JSON(http.StatusOK, s.submitter.State())
}

