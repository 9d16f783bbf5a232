// cmd/dbtools/migrate/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/config"
	"github.com/codr1/ShotSpot/internal/db"
)

// Migrations are embedded in the db package, so the tool only needs to know
// which database file to work on: -db wins over the config file.
func main() {
	var (
		dbPath     = flag.String("db", "", "Path to SQLite database (overrides -config)")
		configPath = flag.String("config", "config.yaml", "Config file to read the database path from")
		command    = flag.String("command", "", "Command to run (up, down, version)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
		}
		path = cfg.Database.Filename
	}

	absDB, err := filepath.Abs(path)
	if err != nil {
		log.Fatal().Err(err).Str("db", path).Msg("Invalid database path")
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	switch *command {
	case "up":
		database, err := db.New(absDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
		database.Close()
	case "down":
		if err := db.MigrateDown(absDB); err != nil {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
	case "version":
		version, dirty, err := db.MigrationVersion(absDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Get version failed")
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
		return
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}

	log.Info().Str("db", absDB).Str("command", *command).Msg("Migration complete")
}
