// Command devtoken prints a signed learner token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"yourvocab/internal/config"
	"yourvocab/internal/security"
)

func main() {
	learnerID := flag.Int64("learner", 1, "Learner id placed in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *learnerID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -learner must be positive")
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (use the same value as the server)\n", err)
		os.Exit(1)
	}
	token, err := security.IssueToken([]byte(cfg.JWTSecret), *learnerID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
