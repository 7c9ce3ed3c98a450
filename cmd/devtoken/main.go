// devtoken prints a signed access token for local testing of the poker server.
// It reads JWT_PRIVATE_KEY (inline PEM or a file path) plus the issuer, audience and TTL from config.
package main

import (
	"flag"
	"fmt"
	"os"

	"scrumtools/backend/internal/config"
	"scrumtools/backend/internal/security"
)

func main() {
	userID := flag.String("user", "", "user id (subject)")
	name := flag.String("name", "", "display name")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -user is required")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTPrivateKey == "" {
		fmt.Fprintln(os.Stderr, "devtoken: JWT_PRIVATE_KEY is not set")
		os.Exit(1)
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	if *name == "" {
		*name = *userID
	}
	tokens := security.NewTokenProvider(priv, nil, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	tok, exp, err := tokens.IssueAccess(*userID, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Println(tok)
}
