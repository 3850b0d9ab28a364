package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/robfig/cron/v3"
)

// LowStockCounter cuenta saldos bajo el mínimo.
type LowStockCounter interface {
	CountLowStock(ctx context.Context) (int, error)
}

// OverdueLister lista traslados abiertos vencidos.
type OverdueLister interface {
	ListOverdue(ctx context.Context) ([]dto.TransferResponse, error)
}

// Report resultado de una pasada del monitor.
type Report struct {
	LowStock         int
	OverdueTransfers []string // códigos
}

// Job revisa periódicamente stock bajo y traslados vencidos y lo deja en el log.
// Solo lee: no modifica saldos ni traslados.
type Job struct {
	lowStock  LowStockCounter
	transfers OverdueLister
	log       *logger.Logger
	timeout   time.Duration
}

// NewJob construye el job del monitor.
func NewJob(lowStock LowStockCounter, transfers OverdueLister, log *logger.Logger) *Job {
	return &Job{lowStock: lowStock, transfers: transfers, log: log, timeout: 30 * time.Second}
}

// RunOnce ejecuta una pasada.
func (j *Job) RunOnce(ctx context.Context) (*Report, error) {
	n, err := j.lowStock.CountLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("contar stock bajo: %w", err)
	}
	overdue, err := j.transfers.ListOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar traslados vencidos: %w", err)
	}
	r := &Report{LowStock: n, OverdueTransfers: make([]string, 0, len(overdue))}
	for _, t := range overdue {
		r.OverdueTransfers = append(r.OverdueTransfers, t.TransferCode)
	}
	return r, nil
}

// Run adaptador para cron.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	r, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("monitor de inventario")
		return
	}
	if r.LowStock > 0 {
		j.log.Warn().Int("balances", r.LowStock).Msg("saldos bajo el mínimo")
	}
	if len(r.OverdueTransfers) > 0 {
		j.log.Warn().Strs("codes", r.OverdueTransfers).Msg("traslados vencidos")
	}
}

// Start programa el job con la expresión dada ("@every 15m", "0 */1 * * *"...).
// Con schedule vacío el monitor queda deshabilitado y devuelve nil.
func Start(schedule string, job *Job) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, job.Run); err != nil {
		return nil, fmt.Errorf("programar monitor %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
