package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
		message  string
	}{
		{"validation", NewValidationError("bad project id", "project_id"), CategoryValidation, http.StatusBadRequest, "[VALIDATION_ERROR] bad project id"},
		{"not found", NewNotFoundError("user", 42), CategoryNotFound, http.StatusNotFound, "[NOT_FOUND] user not found"},
		{"insufficient data", NewInsufficientDataError("Not enough users", nil), CategoryInsufficientData, http.StatusOK, "[INSUFFICIENT_DATA] Not enough users"},
		{"unauthenticated", NewUnauthenticatedError("Token is missing"), CategoryUnauthenticated, http.StatusUnauthorized, "[UNAUTHENTICATED] Token is missing"},
		{"permission", NewPermissionError("Unauthorized"), CategoryPermission, http.StatusForbidden, "[PERMISSION_DENIED] Unauthorized"},
		{"timeout", NewTimeoutError("fit timed out", context.DeadlineExceeded), CategoryTimeout, http.StatusGatewayTimeout, "[TIMEOUT_ERROR] fit timed out"},
		{"rate limit", NewRateLimitError("60"), CategoryRateLimit, http.StatusTooManyRequests, "[RATE_LIMIT_EXCEEDED] Rate limit exceeded"},
		{"internal", NewInternalError("boom", nil), CategoryInternal, http.StatusInternalServerError, "[INTERNAL_ERROR] Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestConstructorCodes(t *testing.T) {
	assert.True(t, NewValidationError("x").ErrCode() == errbuilder.CodeInvalidArgument)
	assert.True(t, NewNotFoundError("user", 1).ErrCode() == errbuilder.CodeNotFound)
	assert.True(t, NewInsufficientDataError("x", nil).ErrCode() == errbuilder.CodeFailedPrecondition)
	assert.True(t, NewPermissionError("x").ErrCode() == errbuilder.CodePermissionDenied)
	assert.True(t, NewUnauthenticatedError("x").ErrCode() == errbuilder.CodeUnauthenticated)
	assert.True(t, NewTimeoutError("x", nil).ErrCode() == errbuilder.CodeDeadlineExceeded)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
	}{
		{"passes app errors through", NewNotFoundError("project", 1), CategoryNotFound},
		{"unwraps wrapped app errors", fmt.Errorf("loading: %w", NewPermissionError("nope")), CategoryPermission},
		{"cancelled context", context.Canceled, CategoryTimeout},
		{"deadline", fmt.Errorf("fit: %w", context.DeadlineExceeded), CategoryTimeout},
		{"locked sqlite", fmt.Errorf("failed to list users: database is locked"), CategoryUnavailable},
		{"anything else", fmt.Errorf("unexpected"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, ToAppError(tt.err).Category)
		})
	}
	assert.Nil(t, ToAppError(nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("database is locked")))
	assert.False(t, IsRetryableError(NewNotFoundError("user", 1)))
	assert.False(t, IsRetryableError(context.Canceled))
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "insufficient data renders as informational 200",
			err:    NewInsufficientDataError("Not enough users for detection.", nil),
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "insufficient_data", body["status"])
				assert.Equal(t, "Not enough users for detection.", body["message"])
			},
		},
		{
			name:   "not found keeps its status",
			err:    NewNotFoundError("user", 7),
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, string(CategoryNotFound), body["category"])
			},
		},
		{
			name:   "plain errors become internal",
			err:    fmt.Errorf("kaboom"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, string(CategoryInternal), body["category"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { Respond(c, tt.err) })

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/x", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			tt.check(t, body)
		})
	}
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
