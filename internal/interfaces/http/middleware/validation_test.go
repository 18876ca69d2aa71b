package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/resale/backoffice/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type paymentInput struct {
		Amount decimal.Decimal `json:"amount" binding:"required"`
		Note   string          `json:"note" binding:"max=10"`
		Lines  []string        `json:"line_ids" binding:"required,min=1"`
	}

	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req paymentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount": req.Amount.String()})
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-400")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("reports json field names", func(t *testing.T) {
		w := post(`{"amount": "0", "note": "far too long for this", "line_ids": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Equal(t, "req-400", resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, map[string]string{
			"amount":   "This field is required",
			"note":     "Must be at most 10 characters",
			"line_ids": "Must contain at least 1 items",
		}, fields)
	})

	t.Run("accepts a decimal amount", func(t *testing.T) {
		w := post(`{"amount": "150.25", "line_ids": ["a"]}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "150.25")
	})
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "rid")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestGetValidationMessage(t *testing.T) {
	type sample struct {
		Required string   `validate:"required"`
		Min      string   `validate:"min=5"`
		MinItems []string `validate:"min=2"`
		Max      int      `validate:"max=10"`
		UUID     string   `validate:"uuid"`
		OneOf    string   `validate:"oneof=WAREHOUSE FINANCE"`
		GT       int      `validate:"gt=0"`
		Email    string   `validate:"email"`
	}

	err := validator.New().Struct(sample{
		Min:      "ab",
		MinItems: []string{"x"},
		Max:      11,
		UUID:     "nope",
		OneOf:    "SALES",
		Email:    "invalid",
	})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = getValidationMessage(e)
	}
	assert.Equal(t, map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"MinItems": "Must contain at least 2 items",
		"Max":      "Must be at most 10",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: WAREHOUSE FINANCE",
		"GT":       "Must be greater than 0",
		"Email":    "Invalid value",
	}, got)
}
