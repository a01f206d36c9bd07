package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/sharepointsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Status string `form:"status" binding:"omitempty,pending_status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func validationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())
	require.NoError(t, SetupValidator(), "registering twice is harmless")

	router := gin.New()
	router.Use(RequestID())
	router.GET("/pending", func(c *gin.Context) {
		var q listQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	})
	return router
}

func TestPendingStatusValidation(t *testing.T) {
	router := validationRouter(t)

	tests := []struct {
		query  string
		status int
		field  string
	}{
		{"", http.StatusOK, ""},
		{"?status=pending", http.StatusOK, ""},
		{"?status=IMPORTED&limit=5", http.StatusOK, ""},
		{"?status=ignored&limit=500", http.StatusOK, ""},
		{"?status=archived", http.StatusBadRequest, "status"},
		{"?limit=0", http.StatusOK, ""},
		{"?limit=501", http.StatusBadRequest, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/pending"+tt.query, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusBadRequest {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
		})
	}
}

func TestHandleValidationError_BindError(t *testing.T) {
	router := validationRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/pending?limit=ten", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Error.Details, 1)
	assert.Contains(t, resp.Error.Details[0].Message, "ten")
}
