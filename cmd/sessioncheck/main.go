// Command sessioncheck verifies that the zpu session database is reachable
// and reports whether a login is stored in it.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/logging"
	"github.com/joseph-ayodele/zero-paper-user/internal/session"
)

func main() {
	cfg := common.LoadConfig()
	logger := logging.New(os.Stderr, "text", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		st  *session.SQLStore
		err error
	)
	dsn := cfg.Client.SessionDSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		st, err = session.OpenPostgres(ctx, dsn, "durable", logger)
	} else {
		dir := cfg.Client.SessionDir
		if dir == "" {
			base, derr := os.UserConfigDir()
			if derr != nil {
				log.Fatalf("locating config dir: %v", derr)
			}
			dir = filepath.Join(base, "zpu")
		}
		st, err = session.OpenSQLite(ctx, filepath.Join(dir, "session.db"), "durable", logger)
	}
	if err != nil {
		log.Fatalf("opening session store: %v", err)
	}
	err = report(ctx, st)
	if cerr := st.Close(); cerr != nil {
		log.Printf("ERROR: closing session store: %v", cerr)
	}
	if err != nil {
		log.Fatalf("session store health: FAIL (%v)", err)
	}
}

func report(ctx context.Context, st *session.SQLStore) error {
	if err := st.Ping(ctx, time.Second); err != nil {
		return err
	}
	log.Println("session store health: OK")

	token, ok, err := st.Get(ctx, session.KeyAuthToken)
	if err != nil {
		return err
	}
	switch {
	case !ok:
		log.Println("no remembered login")
	case session.ValidateTokenExpiry(token, time.Now()):
		log.Println("remembered login: valid")
	default:
		log.Println("remembered login: expired")
	}
	return nil
}
