package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotencyTTL         = 24 * time.Hour
	idempotencyInFlightTTL = 30 * time.Second
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a mutating request
// is retried with the same Idempotency-Key. A retried check-out therefore
// gets its first settlement instead of TRIP_NOT_FOUND. Keys are scoped to
// the route, and a key still being processed is rejected with 409.
func IdempotencyMiddleware(redisClient *redis.Client, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + c.Request.Method + ":" + c.FullPath() + ":" + key
		inFlightKey := cacheKey + ":inflight"

		cached, err := getCachedResponse(ctx, redisClient, cacheKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			// Redis error - proceed without idempotency.
			logger.WithError(err).Warn("idempotency lookup failed")
			c.Next()
			return
		}

		if cached != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		acquired, err := redisClient.SetNX(ctx, inFlightKey, "1", idempotencyInFlightTTL).Result()
		if err != nil {
			logger.WithError(err).Warn("idempotency guard failed")
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":  "REQUEST_IN_PROGRESS",
				"error": "a request with this idempotency key is still being processed",
			})
			return
		}
		defer redisClient.Del(context.WithoutCancel(ctx), inFlightKey)

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// 5xx responses are not final; let the client retry them.
		if status := c.Writer.Status(); status >= 200 && status < 500 {
			response := cachedResponse{
				StatusCode:  status,
				Body:        w.body.Bytes(),
				ContentType: c.Writer.Header().Get("Content-Type"),
			}
			if err := setCachedResponse(context.WithoutCancel(ctx), redisClient, cacheKey, &response, idempotencyTTL); err != nil {
				logger.WithError(err).Warn("idempotent response not stored")
			}
		}
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// getCachedResponse retrieves a cached response from Redis.
func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}
