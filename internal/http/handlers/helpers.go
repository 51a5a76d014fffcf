package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/platform/ctxutil"
)

func pathID(c *gin.Context, name string) (uint, error) {
	raw := strings.TrimSpace(c.Param(name))
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, domainagg.NewError(domainagg.CodeValidation, "", fmt.Sprintf("invalid %s %q", name, raw), nil)
	}
	return uint(v), nil
}

func identity(c *gin.Context) auth.Identity {
	id, _ := ctxutil.IdentityFrom(c.Request.Context())
	return id
}

func bindError(err error) error {
	return domainagg.NewError(domainagg.CodeValidation, "", "invalid request body: "+err.Error(), err)
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, domainagg.NewError(domainagg.CodeValidation, "", fmt.Sprintf("invalid date %q", raw), nil)
}
