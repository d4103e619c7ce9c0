package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewEngine builds the router with recovery, CORS and request logging.
// Only trustedProxies may set the client address through X-Forwarded-For;
// with none, the peer address is used, so per-IP limits cannot be dodged by
// rotating that header.
func NewEngine(trustedProxies []string, corsOrigins string, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(CORS(corsOrigins))
	r.Use(Logger(logger))
	return r, nil
}
