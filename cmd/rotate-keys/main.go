// Command rotate-keys re-encrypts every registered PII column from an old
// Fernet key to a new one. Without --execute it is a dry run: every row is
// read and decrypted but nothing is written.
//
// Exit status is non-zero only for configuration and database errors.
// Per-row decryption failures are reported in the summary and logged, but
// do not fail the run: one bad row must not block rotation of the rest.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/rotate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("BNAV_PG_DSN"), "PostgreSQL DSN")
		oldKey  = flag.String("old-key", "", "Current Fernet key (base64url, 32 bytes)")
		newKey  = flag.String("new-key", "", "Replacement Fernet key (base64url, 32 bytes)")
		execute = flag.Bool("execute", false, "Write re-encrypted values back (default: dry run)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or BNAV_PG_DSN")
	}
	if *oldKey == "" || *newKey == "" {
		log.Fatal("both -old-key and -new-key are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	rot, err := rotate.New(db, *oldKey, *newKey)
	if err != nil {
		log.Fatalf("rotate-keys: %v", err)
	}

	if !*execute {
		log.Println("dry run: no rows will be written (pass -execute to rotate)")
	}
	summary, err := rot.Run(ctx, *execute)
	if err != nil {
		log.Fatalf("rotate-keys: %v", err)
	}

	verb := "rotated"
	if summary.DryRun {
		verb = "would rotate"
	}
	for _, f := range summary.Fields {
		fmt.Printf("%s.%s: rows=%d %s=%d skipped=%d failed=%d\n",
			f.Table, f.Column, f.Rows, verb, f.Rotated, f.Skipped, f.Failed)
	}
	rows, rotated, skipped, failed := summary.Totals()
	fmt.Printf("total: rows=%d %s=%d skipped=%d failed=%d\n", rows, verb, rotated, skipped, failed)
	if failed > 0 {
		fmt.Printf("%d row(s) could not be decrypted with the old key; see log above\n", failed)
	}
}
