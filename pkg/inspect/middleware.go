package inspect

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware handles CORS headers
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RateLimiter tracks request rates per IP
type RateLimiter struct {
	requests map[string]*requestCounter
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

type requestCounter struct {
	count     int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	limiter := &RateLimiter{
		requests: make(map[string]*requestCounter),
		limit:    requestsPerMinute,
		window:   time.Minute,
	}

	// Cleanup goroutine
	go limiter.cleanup()

	return limiter
}

// cleanup periodically evicts expired per-IP counters, so one-off
// clients do not grow the map forever
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.evictExpired()
	}
}

// evictExpired removes counters whose window has passed
func (rl *RateLimiter) evictExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, counter := range rl.requests {
		if now.After(counter.resetTime) {
			delete(rl.requests, ip)
		}
	}
}

// Allow checks if a request should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	counter, exists := rl.requests[ip]
	if !exists || time.Now().After(counter.resetTime) {
		rl.requests[ip] = &requestCounter{
			count:     1,
			resetTime: time.Now().Add(rl.window),
		}
		return true
	}

	if counter.count >= rl.limit {
		return false
	}

	counter.count++
	return true
}

// RateLimitMiddleware applies per-IP rate limiting
func RateLimitMiddleware(requestsPerMinute int) gin.HandlerFunc {
	limiter := NewRateLimiter(requestsPerMinute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "Rate limit exceeded",
				Message: fmt.Sprintf("Maximum %d requests per minute", requestsPerMinute),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		log.Printf("%d | %s | %s %s | %v",
			c.Writer.Status(),
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
			time.Since(startTime),
		)
	}
}

// ErrorResponse is a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
