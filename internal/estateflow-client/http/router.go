package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultAllowedOrigins = []string{
	"http://127.0.0.1:3000",
	"http://localhost:3000",
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	origins := normalizeOrigins(s.cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}))
	if s.cfg.LoopbackOnly {
		r.Use(loopbackOnly())
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sess := r.Group("/session")
	{
		sess.GET("", s.getSession)
		sess.GET("/events", s.sessionEvents)
		sess.POST("/connect", s.connect)
		sess.POST("/disconnect", s.disconnect)
		sess.POST("/clear-error", s.clearSessionError)
		sess.GET("/role", s.getRole)
		sess.PUT("/role", s.setRole)
	}

	r.POST("/network/ensure", s.ensureNetwork)

	reqs := r.Group("/requests")
	{
		reqs.GET("", s.listRequests)
		reqs.GET("/stats", s.requestStats)
		reqs.GET("/inspect", s.inspectRequests)
		reqs.GET("/submission", s.submissionState)
		reqs.POST("/submit", s.submitRequest)
		reqs.POST("/reset", s.resetRequests)
		reqs.POST("/clear", s.clearRequests)
		reqs.POST("/refresh", s.refreshRequests)
		reqs.GET("/:id", s.getRequest)
		reqs.PATCH("/:id", s.updateRequest)
		reqs.DELETE("/:id", s.deleteRequest)
	}

	chain := r.Group("/onchain", s.requireOnChain)
	{
		chain.GET("/requests", s.onChainRequests)
		chain.GET("/requests/:id", s.onChainRequest)
		chain.GET("/total", s.onChainTotal)
		chain.GET("/head", s.onChainHead)
		chain.GET("/node", s.onChainNode)
	}

	return r
}

func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLoopbackRequest(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "loopback only"})
			return
		}
		c.Next()
	}
}
