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
	"github.com/gofiber/fiber/v2/middleware/requestid"
	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/infrastructure/notify"
	"github.com/jhoicas/Requisiciones-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Requisiciones-api/internal/interfaces/http"
	"github.com/jhoicas/Requisiciones-api/pkg/config"
	"github.com/jhoicas/Requisiciones-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	balanceRepo := postgres.NewBalanceRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	burRepo := postgres.NewBurRepository(pool)
	txRunner := postgres.NewTxRunner(pool,
		time.Duration(cfg.Budget.LockTimeoutSeconds)*time.Second)

	notifier := notify.NewLogNotifier(log)
	engine := appbudget.NewAtomicTransaction(txRunner)
	gate := budget.NewPermissionGate()
	workflow := appbudget.NewBurWorkflow(txRunner, burRepo, balanceRepo, gate, engine, notifier)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Requisiciones API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:      engine,
		BurWorkflow: workflow,
		BalanceRepo: balanceRepo,
		LedgerRepo:  ledgerRepo,
		Notifier:    notifier,
		JWTSecret:   cfg.JWT.Secret,
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

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
