package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// countingRunner ejecuta fn sin transacción y cuenta los intentos.
type countingRunner struct {
	calls int
}

func (r *countingRunner) Run(_ context.Context, fn func(inventory.Repos) error) error {
	r.calls++
	return fn(inventory.Repos{})
}

func TestRetryPolicy_ReintentaConflictos(t *testing.T) {
	runner := &countingRunner{}
	p := inventory.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	err := p.Run(context.Background(), runner, func(inventory.Repos) error {
		if runner.calls < 3 {
			return fmt.Errorf("update: %w", domain.ErrConflict)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
}

func TestRetryPolicy_AgotaIntentos(t *testing.T) {
	runner := &countingRunner{}
	p := inventory.RetryPolicy{Attempts: 2}

	err := p.Run(context.Background(), runner, func(inventory.Repos) error {
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 2, runner.calls)
}

func TestRetryPolicy_NoReintentaOtrosErrores(t *testing.T) {
	runner := &countingRunner{}
	p := inventory.RetryPolicy{Attempts: 5}
	boom := errors.New("boom")

	err := p.Run(context.Background(), runner, func(inventory.Repos) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runner.calls)

	runner.calls = 0
	err = p.Run(context.Background(), runner, func(inventory.Repos) error { return domain.ErrInsufficientStock })
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, runner.calls)
}

func TestRetryPolicy_RespetaCancelacion(t *testing.T) {
	runner := &countingRunner{}
	p := inventory.RetryPolicy{Attempts: 3, Backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, runner, func(inventory.Repos) error { return domain.ErrConflict })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runner.calls)
}

func TestRetryPolicy_CeroIntentosEjecutaUnaVez(t *testing.T) {
	runner := &countingRunner{}
	err := inventory.RetryPolicy{}.Run(context.Background(), runner, func(inventory.Repos) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
}

// conflictRunner falla por conflicto las primeras `fails` veces y luego delega.
type conflictRunner struct {
	inner inventory.TxRunner
	fails int
	calls int
}

func (r *conflictRunner) Run(ctx context.Context, fn func(inventory.Repos) error) error {
	r.calls++
	if r.calls <= r.fails {
		return fmt.Errorf("could not serialize access: %w", domain.ErrConflict)
	}
	return r.inner.Run(ctx, fn)
}

func TestLedgerYRegistry_ReintentanConflictos(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	runner := &conflictRunner{inner: store, fails: 1}
	p := inventory.RetryPolicy{Attempts: 3}
	ledger := inventory.NewLedger(runner, p, repos.Balances, repos.Movements, logger.Nop(), testMaxPage)
	registry := inventory.NewRegistry(runner, p, repos.Balances, repos.Movements, logger.Nop(), testMaxPage)
	ctx := context.Background()

	bal, err := registry.GetOrCreateBalance(ctx, "w1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)

	runner.calls = 0
	mov, err := ledger.RecordMovement(ctx, inventory.MovementInput{
		BalanceID:     bal.ID,
		MovementType:  entity.MovementTypeIn,
		Quantity:      4,
		ReferenceType: entity.ReferenceManual,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, int64(4), mov.SignedDelta)

	got, err := ledger.GetBalance(ctx, bal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.CurrentStock, "el reintento aplica el movimiento una sola vez")
}
