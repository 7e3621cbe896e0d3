// Command zpu is the terminal client for Zero Paper User: account flows,
// receipt management, spreadsheet export and spending analytics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/zero-paper-user/internal/client"
	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/logging"
	"github.com/joseph-ayodele/zero-paper-user/internal/session"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

const usage = `usage: zpu <command> [flags]

commands:
  login [-remember] -email E -password P
  logout
  register -name N -email E -password P -otp CODE
  otp send -email E
  otp verify -email E -otp CODE
  password reset -email E -otp CODE -new-password P
  account delete -email E [-otp CODE]
  receipts list [-category C] [-sort date|price]
  receipts add -category C -price X -currency CUR -product P -store S -date D [-image path]
  receipts delete -id ID
  receipts image -id ID -out FILE
  receipts export -out FILE
  analytics [-category C]
`

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// app bundles what every command needs.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	session  *session.Session
	auth     *client.AuthService
	receipts *client.ReceiptService
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":     cmdLogin,
	"logout":    cmdLogout,
	"register":  cmdRegister,
	"otp":       cmdOTP,
	"password":  cmdPassword,
	"account":   cmdAccount,
	"receipts":  cmdReceipts,
	"analytics": cmdAnalytics,
}

// errUsage makes main print the usage text.
var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Print(usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		printError("Error: unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	level := "warn"
	if os.Getenv("ZPU_DEBUG") != "" {
		level = "debug"
	}
	logger := logging.New(os.Stderr, "text", level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, closeStores, err := newApp(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	err = cmd(ctx, a, os.Args[2:])
	closeStores()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		printError("%v\n\n%s", err, usage)
		os.Exit(2)
	default:
		printError("Error: %v\n", describe(err))
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, func(), error) {
	durable, err := openDurable(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	ephemeral, err := session.OpenSQLite(ctx, filepath.Join(os.TempDir(), "zpu", "session.db"), ephemeralScope(), logger)
	if err != nil {
		_ = durable.Close()
		return nil, nil, fmt.Errorf("open temporary session store: %w", err)
	}
	closeStores := func() {
		_ = ephemeral.Close()
		_ = durable.Close()
	}

	mock, err := loadMockPayloads(cfg)
	if err != nil {
		closeStores()
		return nil, nil, err
	}

	sess := session.New(durable, ephemeral, logger)
	chain := client.DefaultChain(cfg, mock, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		session:  sess,
		auth:     client.NewAuthService(chain, sess, logger),
		receipts: client.NewReceiptService(chain, sess, logger),
	}, closeStores, nil
}

func openDurable(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*session.SQLStore, error) {
	dsn := cfg.Client.SessionDSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return session.OpenPostgres(ctx, dsn, "durable", logger)
	}
	dir := cfg.Client.SessionDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "zpu")
	}
	return session.OpenSQLite(ctx, filepath.Join(dir, "session.db"), "durable", logger)
}

// ephemeralScope ties the non-remembered tier to the invoking shell, so a
// login without -remember lasts until that terminal goes away.
func ephemeralScope() string {
	return fmt.Sprintf("tty-%d", os.Getppid())
}

// loadMockPayloads reads <op>.json files from ZPU_MOCK_DIR when mock mode is on.
func loadMockPayloads(cfg *common.Config) (map[transport.Op][]byte, error) {
	if !cfg.Client.MockMode {
		return nil, nil
	}
	dir := os.Getenv("ZPU_MOCK_DIR")
	if dir == "" {
		return map[transport.Op][]byte{}, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	out := make(map[transport.Op][]byte, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read mock payload: %w", err)
		}
		out[transport.Op(strings.TrimSuffix(filepath.Base(f), ".json"))] = b
	}
	return out, nil
}

// describe turns a service failure into the message shown to the user.
func describe(err error) string {
	var f *common.Failure
	if !errors.As(err, &f) {
		return err.Error()
	}
	switch {
	case len(f.Fields) > 0:
		return fmt.Sprintf("%s (fields: %s)", f.Message, strings.Join(f.Fields, ", "))
	case errors.Is(err, common.ErrUnauthorized):
		return f.Message + " (zpu login -email E)"
	case errors.Is(err, common.ErrNotFound):
		return f.Message + " (not found)"
	}
	return f.Message
}
