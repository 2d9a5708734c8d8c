package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	punchcard "github.com/punchcard-app/punchcard"
	"github.com/punchcard-app/punchcard/tracking"
)

type App struct {
	config      *AppConfig
	logger      *zapLogger
	bunDB       *bun.DB
	repo        punchcard.RepositoryManager
	auth        punchcard.Authenticator
	auther      *punchcard.RouteAuthenticator
	invitations *punchcard.InvitationManager
	srv         router.Server[*fiber.App]
}

func main() {
	ctx := context.Background()

	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	if cfg.SigningKey == "" {
		fmt.Fprintln(os.Stderr, "PUNCHCARD_SIGNING_KEY is required")
		os.Exit(1)
	}

	lgr, err := newZapLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer lgr.Sync()

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithTracking(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(cfg.HTTPAddr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*punchcard.User)(nil),
		(*tracking.TimeEntry)(nil),
		(*tracking.Expense)(nil),
		(*tracking.LeaveRequest)(nil),
		(*tracking.Trip)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	app.bunDB = db
	app.repo = punchcard.NewRepositoryManager(db)
	app.repo.MustValidate()

	return seedAdmin(ctx, app)
}

// seedAdmin bootstraps the first admin account on an empty directory. The
// temporary password is printed to the console exactly once.
func seedAdmin(ctx context.Context, app *App) error {
	count, err := app.bunDB.NewSelect().
		Model((*punchcard.User)(nil)).
		Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	tempPassword := punchcard.GenerateTemporaryPassword()
	passwordHash, err := punchcard.HashPassword(tempPassword)
	if err != nil {
		return err
	}

	admin, err := app.repo.Users().Create(ctx, &punchcard.User{
		Username:      app.config.SeedAdminUsername,
		Email:         app.config.SeedAdminEmail,
		FullName:      "Administrator",
		Role:          punchcard.RoleAdmin,
		PasswordHash:  passwordHash,
		NeedsPassword: true,
	})
	if err != nil {
		return err
	}

	fmt.Println("====== INITIAL ADMIN ACCOUNT =======")
	fmt.Printf("username: %s\n", admin.Username)
	fmt.Printf("temporary password: %s\n", tempPassword)
	fmt.Println("change it on first login")
	fmt.Println("====================================")

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "punchcard",
			StrictRouting: false,
		}))
	})

	app.srv = srv
	return nil
}

func WithHTTPAuth(_ context.Context, app *App) error {
	cfg := app.config

	authenticator := punchcard.NewAuthenticator(app.repo, cfg).
		WithLogger(app.logger.Named("auth"))
	app.auth = authenticator

	httpAuth, err := punchcard.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = app.logger.Named("auth:http")
	app.auther = httpAuth

	app.invitations = punchcard.NewInvitationManager(
		app.repo,
		punchcard.WithInvitationMailer(buildMailer(app)),
		punchcard.WithInvitationValidity(time.Duration(cfg.GetInvitationValidityHours())*time.Hour),
		punchcard.WithInvitationLogger(app.logger.Named("invites")),
	)

	controller := punchcard.RegisterAuthRoutes(app.srv.Router().Group("/"),
		func(ac *punchcard.AuthController) *punchcard.AuthController {
			ac.Debug = cfg.Debug
			ac.Repo = app.repo
			ac.Auth = app.auth
			ac.Auther = app.auther
			ac.Invitations = app.invitations
			ac.WithLogger(app.logger.Named("auth:ctrl"))
			return ac
		})

	punchcard.RegisterAdminRoutes(app.srv.Router().Group("/"), controller)

	return nil
}

func buildMailer(app *App) punchcard.Mailer {
	dir := app.config.TemplatesDir
	if _, err := os.Stat(dir); err != nil {
		app.logger.Warn("mail templates not found, using console delivery", "dir", dir)
		return punchcard.ConsoleMailer{}
	}

	// Rendered mail goes to the console; wire a real transport here when one
	// is available.
	sender := func(_ context.Context, to, subject, body string) error {
		fmt.Println("====== SENDING INVITATION EMAIL =======")
		fmt.Printf("to: %s\n", to)
		fmt.Printf("subject: %s\n", subject)
		fmt.Println(body)
		fmt.Println("=======================================")
		return nil
	}

	mailer, err := punchcard.NewTemplateMailer(dir, ".html", sender)
	if err != nil {
		app.logger.Warn("failed to load mail templates, using console delivery", "error", err)
		return punchcard.ConsoleMailer{}
	}

	return mailer
}

func WithTracking(_ context.Context, app *App) error {
	repo := tracking.NewRepositoryManager(app.bunDB)
	repo.MustValidate()

	service := tracking.NewService(repo,
		tracking.WithServiceLogger(app.logger.Named("tracking")),
	)

	authErr := app.auther.MakeClientRouteAuthErrorHandler(false)
	authed := app.auther.ProtectedRoute(authErr)
	admin := app.auther.AdminRoute(authErr)

	controller := tracking.NewController(service).
		WithLogger(app.logger.Named("tracking:ctrl"))

	controller.RegisterRoutes(app.srv.Router().Group("/"), authed, admin)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
