package main

import (
	"flag"
	"log/slog"
	"os"

	"staffhub/internal/platform/db"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the SQL migrations")
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if err := db.Migrate(databaseURL, *dir, action); err != nil {
		slog.Error("migration failed", "action", action, "err", err)
		os.Exit(1)
	}
	slog.Info("migration complete", "action", action)
}
