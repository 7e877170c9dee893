package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/session"
)

// GET /session
func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{Session: s.session.Snapshot(), Role: s.session.Role()})
}

// GET /session/events streams every session change as a server-sent "session" event,
// starting with the current snapshot.
func (s *Server) sessionEvents(c *gin.Context) {
	ch := make(chan session.Session, 8)
	sub := s.session.Subscribe(ch)
	defer sub.Unsubscribe()

	c.SSEvent("session", s.session.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case snap := <-ch:
			c.SSEvent("session", snap)
			return true
		case <-sub.Err():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// POST /session/connect
func (s *Server) connect(c *gin.Context) {
	if err := s.session.Connect(c.Request.Context()); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.JSON(status, sessionError{Error: err.Error(), Session: s.session.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: s.session.Snapshot(), Role: s.session.Role()})
}

// POST /session/disconnect
func (s *Server) disconnect(c *gin.Context) {
	s.session.Disconnect()
	c.JSON(http.StatusOK, sessionResponse{Session: s.session.Snapshot(), Role: s.session.Role()})
}

// POST /session/clear-error
func (s *Server) clearSessionError(c *gin.Context) {
	s.session.ClearError()
	c.JSON(http.StatusOK, sessionResponse{Session: s.session.Snapshot(), Role: s.session.Role()})
}

func (s *Server) getRole(c *gin.Context) {
	c.JSON(http.StatusOK, roleResponse{Role: s.session.Role()})
}

// PUT /session/role
func (s *Server) setRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	role, err := session.ParseRole(req.Role)
	if err == nil {
		err = s.session.SetRole(role)
	}
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, roleResponse{Role: role})
}

// POST /network/ensure switches (or adds) the wallet's network to the configured one.
func (s *Server) ensureNetwork(c *gin.Context) {
	network := s.network.Network()
	if err := s.network.Ensure(c.Request.Context(), s.session.Provider()); err != nil {
		c.JSON(http.StatusBadGateway, networkResponse{Error: err.Error(), Network: network})
		return
	}
	c.JSON(http.StatusOK, networkResponse{Ok: true, Network: network})
}
