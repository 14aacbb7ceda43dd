package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IdempotencyStore is the subset of *redis.Client used to deduplicate
// order requests.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"
	processingMarker  = "PROCESSING"
	lockTTL           = 30 * time.Second
	resultTTL         = 24 * time.Hour
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// bodyRecorder tees the response body so it can be stored.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotent replays the stored response of a request already completed
// under the same Idempotency-Key for the same user. Requests without the
// header, or with no store configured, are handled normally. Server
// errors release the key so the client may retry.
func idempotent(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if store == nil || key == "" {
			c.Next()
			return
		}
		var userID uint
		if u := currentUser(c); u != nil {
			userID = u.ID
		}
		redisKey := fmt.Sprintf("station:idempotency:%d:%s", userID, key)
		ctx := c.Request.Context()

		val, err := store.Get(ctx, redisKey).Result()
		switch {
		case err == nil && val == processingMarker:
			c.AbortWithStatusJSON(http.StatusConflict, errorBody{Detail: "A request with this Idempotency-Key is in progress."})
			return
		case err == nil:
			var stored storedResponse
			if jerr := json.Unmarshal([]byte(val), &stored); jerr != nil {
				log.Printf("api: idempotency: decode %s: %v", redisKey, jerr)
				c.Next()
				return
			}
			c.Header(replayHeader, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		case !errors.Is(err, redis.Nil):
			log.Printf("api: idempotency: get %s: %v", redisKey, err)
			c.Next()
			return
		}

		acquired, err := store.SetNX(ctx, redisKey, processingMarker, lockTTL).Result()
		if err != nil {
			log.Printf("api: idempotency: lock %s: %v", redisKey, err)
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, errorBody{Detail: "A request with this Idempotency-Key is in progress."})
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// The request context may already be cancelled.
		bg := context.Background()
		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Del(bg, redisKey).Err(); err != nil {
				log.Printf("api: idempotency: release %s: %v", redisKey, err)
			}
			return
		}
		body := rec.buf.Bytes()
		if len(body) == 0 {
			body = []byte("null")
		}
		data, err := json.Marshal(storedResponse{Status: status, Body: body})
		if err != nil {
			log.Printf("api: idempotency: encode %s: %v", redisKey, err)
			return
		}
		if err := store.Set(bg, redisKey, data, resultTTL).Err(); err != nil {
			log.Printf("api: idempotency: store %s: %v", redisKey, err)
		}
	}
}
