package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/session"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/submit"
)

func isLoopbackRequest(r *http.Request) bool {
	h, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		h = r.RemoteAddr
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func normalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

func normalizeOrigins(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = normalizeOrigin(o)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

// statusFor maps domain errors onto HTTP codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, requests.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, requests.ErrInvalidStatus), errors.Is(err, session.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, submit.ErrSubmitInProgress), errors.Is(err, session.ErrConnectInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}
