package profiles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// setOptional adds column = value to the update when value is non-nil. An
// empty string clears the column.
func setOptional(b squirrel.UpdateBuilder, column string, value *string) (squirrel.UpdateBuilder, bool) {
	if value == nil {
		return b, false
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return b.Set(column, nil), true
	}
	return b.Set(column, v), true
}

func rollback(ctx context.Context, tx pgx.Tx, l *slog.Logger) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		l.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("rollback_error", err))
	}
}
