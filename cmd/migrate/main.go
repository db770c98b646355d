package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/shared"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	dsn, err := shared.SafeEnv("DSN")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: DSN environment variable is required: %v\n", err)
		os.Exit(1)
	}

	migrationPath := filepath.Join("migrations", "create_messages_table.sql")
	if len(os.Args) > 1 {
		migrationPath = os.Args[1]
	}

	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading migration file %s: %v\n", migrationPath, err)
		os.Exit(1)
	}

	db, err := database.Open(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	for _, stmt := range splitStatements(string(migrationSQL)) {
		if _, err := db.Exec(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "Error executing statement: %v\n", err)
			fmt.Fprintf(os.Stderr, "Statement: %s\n", stmt)
			os.Exit(1)
		}
	}

	fmt.Println("Migration completed successfully!")
}

// splitStatements splits on semicolons and strips full line "--" comments
func splitStatements(src string) []string {
	var out []string
	for _, stmt := range strings.Split(src, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
