package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/deppfellow/endpoint-bridge/internal/database"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// TxStarter opens transactions. *pgxpool.Pool implements it.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TransactionMiddleware runs endpoint handlers inside a database transaction.
type TransactionMiddleware struct {
	db TxStarter
}

func NewTransactionMiddleware(s *server.Server) *TransactionMiddleware {
	tm := &TransactionMiddleware{}
	if s.DB != nil && s.DB.Pool != nil {
		tm.db = s.DB.Pool
	}
	return tm
}

// Begin opens a transaction for the request and commits it when the handler
// succeeds. The response is held back until the commit went through, so a
// failed commit is still answered as an error. On error the transaction
// stays bound to the request for the error translator to roll back.
func (tm *TransactionMiddleware) Begin(next echo.HandlerFunc) echo.HandlerFunc {
	if tm.db == nil {
		return next
	}

	return func(c echo.Context) error {
		ctx := c.Request().Context()

		tx, err := tm.db.Begin(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to begin request transaction")
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback(context.WithoutCancel(ctx))
				panic(p)
			}
		}()

		c.SetRequest(c.Request().WithContext(database.WithTx(ctx, tx)))

		res := c.Response()
		out := res.Writer
		buf := &bufferedWriter{ResponseWriter: out}
		res.Writer = buf
		defer func() { res.Writer = out }()

		if err := next(c); err != nil {
			discard(res)
			return err
		}

		if err := tx.Commit(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			discard(res)
			return errors.Wrap(err, "failed to commit request transaction")
		}

		return buf.flush()
	}
}

// discard forgets a response the handler wrote but that must not be sent.
func discard(res *echo.Response) {
	if res.Committed {
		res.Committed = false
		res.Status = http.StatusOK
		res.Size = 0
	}
}

// bufferedWriter keeps the status and body until flush.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) flush() error {
	if w.status == 0 {
		return nil
	}
	w.ResponseWriter.WriteHeader(w.status)
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}
