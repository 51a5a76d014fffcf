package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
)

func TestRespondErrMapsCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), http.StatusBadRequest, "validation"},
		{domainagg.NewError(domainagg.CodeNotFound, "op", "missing", nil), http.StatusNotFound, "not_found"},
		{domainagg.NewError(domainagg.CodeInvalidState, "op", "state", nil), http.StatusConflict, "invalid_state"},
		{domainagg.NewError(domainagg.CodeConflict, "op", "dup", nil), http.StatusConflict, "conflict"},
		{domainagg.NewError(domainagg.CodeRetryable, "op", "busy", nil), http.StatusServiceUnavailable, "retryable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondErr(c, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: status=%d want %d", tc.err, rec.Code, tc.status)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code || env.Error.Message == "" {
			t.Fatalf("%v: envelope=%+v", tc.err, env)
		}
	}
}
