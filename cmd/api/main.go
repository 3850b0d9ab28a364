package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/monitor"
	"github.com/jhoicas/stock-ledger/internal/application/receiving"
	"github.com/jhoicas/stock-ledger/internal/application/transfer"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// storage agrupa lo que cada backend aporta a los casos de uso.
type storage struct {
	txRunner   inventory.TxRunner
	repos      inventory.Repos
	warehouses repository.WarehouseRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store := openStorage(ctx, cfg, log)
	defer store.close()

	retry := inventory.RetryPolicy{Attempts: cfg.Ledger.RetryAttempts, Backoff: cfg.Ledger.RetryBackoff}
	maxPage := cfg.Ledger.MaxPageSize

	ledger := inventory.NewLedger(store.txRunner, retry, store.repos.Balances, store.repos.Movements, log.Component("ledger"), maxPage)
	registry := inventory.NewRegistry(store.txRunner, retry, store.repos.Balances, store.repos.Movements, log.Component("registry"), maxPage)
	lowStock := inventory.NewLowStockMonitor(store.repos.Balances, maxPage)
	receivingUC := receiving.NewUseCase(store.txRunner, store.repos.Orders, ledger, retry, log.Component("receiving"))
	transferUC := transfer.NewUseCase(
		store.txRunner, store.repos.Transfers, store.warehouses, ledger, retry,
		infrapdf.NewDispatchNoteGenerator(), log.Component("transfer"), maxPage,
	)

	// Monitor periódico de stock bajo y traslados vencidos
	job := monitor.NewJob(lowStock, transferUC, log.Component("monitor"))
	scheduler, err := monitor.Start(cfg.Monitor.Schedule, job)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Monitor.Schedule).Msg("programar monitor")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledger,
		Registry:  registry,
		LowStock:  lowStock,
		Receiving: receivingUC,
		Transfers: transferUC,
		Dashboard: monitor.NewDashboard(lowStock, transferUC),
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL (con migraciones opcionales) o el store en memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.App.StorageDriver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return storage{txRunner: s, repos: s.Repos(), warehouses: s.Warehouses(), close: func() {}}
	}

	if cfg.DB.AutoMigrate {
		version, err := postgres.Migrate(cfg.DB.ConnectionString())
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Uint("version", version).Msg("esquema al día")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	return storage{
		txRunner:   postgres.NewTxRunner(pool),
		repos:      postgres.NewRepos(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		close:      pool.Close,
	}
}
