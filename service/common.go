package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"crudapp/app/repositories"
	"crudapp/app/repositories/sqlstore"
	"crudapp/config"
)

// openStore opens the configured backend. SQLite databases are migrated to
// the latest schema before use.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (*repositories.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlstore.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db.Store(), nil
	case config.DriverBadger:
		return repositories.OpenBadger(repositories.BadgerOptions{Path: cfg.Storage.BadgerPath}, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// backupExt is the file extension for backups of the given driver.
func backupExt(driver string) string {
	if driver == config.DriverSQLite {
		return "json"
	}
	return "bak"
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}
