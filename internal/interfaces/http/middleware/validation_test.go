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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

// paymentForm mirrors the shape of a payment submission for binding tests.
type paymentForm struct {
	Direction      string `json:"direction" binding:"required,oneof=INCOMING OUTGOING"`
	CounterpartyID string `json:"counterparty_id" binding:"required,uuid"`
	TotalAmount    int64  `json:"total_amount" binding:"required,gt=0"`
}

func postPayment(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/ledger/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func paymentRouter() *gin.Engine {
	router := gin.New()
	router.POST("/ledger/payments", func(c *gin.Context) {
		var form paymentForm
		if err := c.ShouldBindJSON(&form); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NotNil(t, v)

	t.Run("errors carry the json field name", func(t *testing.T) {
		router := paymentRouter()

		w := postPayment(router, `{"direction":"INCOMING","total_amount":500}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "counterparty_id", resp.Error.Details[0].Field)
	})
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()
	router := paymentRouter()

	t.Run("reports every failed field", func(t *testing.T) {
		w := postPayment(router, `{"direction":"SIDEWAYS","counterparty_id":"not-a-uuid","total_amount":-3}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Len(t, resp.Error.Details, 3)
	})

	t.Run("carries the request ID from the context", func(t *testing.T) {
		tagged := gin.New()
		tagged.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-ledger-9") })
		tagged.POST("/ledger/payments", func(c *gin.Context) {
			var form paymentForm
			if err := c.ShouldBindJSON(&form); err != nil {
				HandleValidationError(c, err)
				return
			}
		})

		w := postPayment(tagged, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "req-ledger-9", resp.Error.RequestID)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w := postPayment(router, `{"direction":"INCOMING","counterparty_id":"b3f4c7f0-45a1-4d7a-9a8e-2f6d1c0b9e11","total_amount":500}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type fields struct {
		Required string `binding:"required"`
		Min      string `binding:"min=5"`
		Max      string `binding:"max=3"`
		UUID     string `binding:"uuid"`
		OneOf    string `binding:"oneof=INCOMING OUTGOING"`
		GT       int    `binding:"gt=0"`
	}

	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(fields{Max: "over", UUID: "nope", OneOf: "SIDEWAYS"})
	require.Error(t, err)

	want := map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"Max":      "Must be at most 3 characters",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: INCOMING OUTGOING",
		"GT":       "Must be greater than 0",
	}

	seen := map[string]bool{}
	for _, e := range err.(validator.ValidationErrors) {
		expected, ok := want[e.Field()]
		require.True(t, ok, "unexpected field %s", e.Field())
		assert.Equal(t, expected, validationMessage(e))
		seen[e.Field()] = true
	}
	assert.Len(t, seen, len(want))
}
