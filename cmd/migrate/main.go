// Command migrate applies the embedded SQL migrations with goose.
//
//	migrate up | down | status | redo | version | reset | up-to VERSION | down-to VERSION
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/noah-isme/faculty-timetable-api/migrations"
	"github.com/noah-isme/faculty-timetable-api/pkg/config"
	"github.com/noah-isme/faculty-timetable-api/pkg/database"
)

var gooseRun = goose.Run // mockable

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate <command> [args]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := run(db.DB, flag.Arg(0), flag.Args()[1:]...); err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func run(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRun(command, db, ".", args...)
}
