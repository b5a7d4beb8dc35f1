package monitoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an id, honouring one sent by the client
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// MonitoringMiddleware creates Gin middleware for request monitoring
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ip := c.ClientIP()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// FullPath keeps label cardinality bounded to registered routes
		metrics.RecordRequest(method, c.FullPath(), statusCode, duration)
		logger.RequestLogger(method, path, ip, c.GetString("request_id"), statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, statusCode)
		}

		if statusCode >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("Status %d for %s %s", statusCode, method, path))
		}
	}
}

var suspiciousAgents = []string{
	"sqlmap",
	"nmap",
	"masscan",
	"zmap",
	"dirbuster",
	"gobuster",
	"nikto",
	"acunetix",
}

var injectionPatterns = []string{
	"union select",
	"union all",
	"drop table",
	"delete from",
	"';--",
	"/*",
}

// SecurityMonitoringMiddleware logs requests that look like scanners or injection attempts
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		details := make(map[string]interface{})

		query := strings.ToLower(c.Request.URL.RawQuery)
		for _, p := range injectionPatterns {
			if strings.Contains(query, p) {
				details["type"] = "potential_sql_injection"
				details["query"] = c.Request.URL.RawQuery
				break
			}
		}

		agent := strings.ToLower(c.GetHeader("User-Agent"))
		for _, a := range suspiciousAgents {
			if strings.Contains(agent, a) {
				details["type"] = "suspicious_user_agent"
				details["user_agent"] = c.GetHeader("User-Agent")
				break
			}
		}

		if len(details) > 0 {
			details["path"] = c.Request.URL.Path
			logger.SecurityLogger("suspicious_activity_detected", c.ClientIP(), details)
		}

		c.Next()
	}
}
