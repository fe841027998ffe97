package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricewatch/internal/observability/logger"
	"go.uber.org/zap"
)

type observationRateLimitKey struct {
	Source string `json:"source"`
}

// ObservationRateLimit throttles observation writes per collector source.
func (s *Server) ObservationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.sourceLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		source, err := readObservationSource(c)
		if err != nil {
			logger.FromContext(ctx).Warn("observation rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		allowed, retryAfter, err := s.sourceLimiter.Allow(ctx, source)
		if err != nil {
			logger.FromContext(ctx).Warn("observation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			logger.FromContext(ctx).Warn("observation rate limit exceeded", zap.String("source", source))
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func readObservationSource(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload observationRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		// The handler reports malformed bodies.
		return "", nil
	}
	return strings.TrimSpace(payload.Source), nil
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
