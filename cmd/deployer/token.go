package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"codeberg.org/ragcookbook/server/internal/auth"
)

// prints a bearer token for the server API
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)

	subject := fs.String("subject", "", "who the token is issued to (required)")
	scopes := fs.String("scopes", strings.Join(auth.AllScopes, ","), "comma separated scopes")
	ttl := fs.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("-subject is required")
	}

	if err := godotenv.Load(); err != nil {
		_ = err // .env is optional
	}

	authn, err := auth.New(os.Getenv("JWT_SECRET"), *ttl)
	if err != nil {
		return err
	}

	var granted []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	token, err := authn.IssueToken(*subject, granted...)
	if err != nil {
		return err
	}

	fmt.Println(token)

	return nil
}
