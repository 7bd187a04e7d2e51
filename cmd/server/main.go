package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/eitsa/identity"
	"github.com/eitsa/identity/geo"
	"github.com/eitsa/identity/leads"
	"github.com/eitsa/identity/smtp"
)

func main() {
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger := zeroLogger{log: zlog}

	cfg, err := identity.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := createSchema(context.Background(), db); err != nil {
		zlog.Fatal().Err(err).Msg("failed to create schema")
	}

	users := identity.NewUsersRepository(db)

	var notifier identity.Notifier
	if cfg.SMTPHost != "" {
		notifier = smtp.New(smtp.Config{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FrontendURL: cfg.FrontendURL,
		})
	}

	tokens := identity.NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL, cfg.Issuer).
		WithLogger(logger)

	auth := identity.NewAuthenticator(users, tokens).
		WithNotifier(notifier).
		WithLogger(logger)

	verifier := identity.NewVerifier(users).
		WithNotifier(notifier).
		WithLogger(logger)

	registrar := identity.NewRegistrar(users, verifier).
		WithLogger(logger)

	leadRepo := leads.NewRepository(db)
	geoClient := geo.NewClient(cfg.GoogleMapsAPIKey)

	app := fiber.New(fiber.Config{
		AppName:      "eitsa-leads",
		ErrorHandler: errorHandler(logger),
	})

	registerRoutes(app, &deps{
		users:     users,
		auth:      auth,
		verifier:  verifier,
		registrar: registrar,
		leads:     leadRepo,
		geo:       geoClient,
		logger:    logger,
	})

	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		zlog.Fatal().Err(err).Msg("server stopped")
	}
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*identity.User)(nil),
		(*leads.Lead)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
