package aggregates

import (
	"fmt"
	"strings"

	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard applies status transitions as compare-and-set updates.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// UpdateByStatus runs `UPDATE table SET ... WHERE id = ? AND status IN ?`
// and reports whether a row matched. A concurrent writer that already moved
// the row out of allowed makes it report false.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uint, allowed []string, updates map[string]any) (bool, error) {
	db := dbc.DB(g.db)
	if db == nil {
		return false, ValidationError("missing db transaction context")
	}
	if strings.TrimSpace(table) == "" || id == 0 {
		return false, ValidationError("table and id are required for UpdateByStatus")
	}
	if len(allowed) == 0 {
		return false, ValidationError("allowed statuses must not be empty")
	}
	res := db.Table(table).Where("id = ? AND status IN ?", id, allowed).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a lost compare-and-set into an invalid state error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return InvalidStateError(message)
}

// RequireStatusAllowed reports InvalidState unless current is one of allowed.
func RequireStatusAllowed[S ~string](current S, allowed ...S) error {
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if s == current {
			return nil
		}
	}
	return InvalidStateError(fmt.Sprintf("status transition not allowed from %q", string(current)))
}

func statusStrings[S ~string](in []S) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
