package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// RetryPolicy repite una unidad de trabajo completa cuando falla por conflicto
// (serialización, deadlock o versión). Nunca reintenta ítem por ítem.
type RetryPolicy struct {
	Attempts int           // intentos totales; < 1 equivale a 1
	Backoff  time.Duration // espera base; crece lineal con cada intento
}

// Run ejecuta fn con runner y reintenta mientras el error sea domain.IsRetryable.
func (p RetryPolicy) Run(ctx context.Context, runner TxRunner, fn func(repos Repos) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * p.Backoff):
			}
		}
		err = runner.Run(ctx, fn)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
	}
	return err
}
