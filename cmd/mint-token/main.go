// Command mint-token issues a signed bearer token for local development and
// testing against the API server.
//
// Usage:
//
//	JWT_SECRET=... mint-token -user alice -email alice@example.com -group <group-id> -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"pockets/internal/config"
	"pockets/internal/identity"
)

func main() {
	_ = godotenv.Load()

	user := flag.String("user", "", "user id to embed in the token (required)")
	email := flag.String("email", "", "email claim")
	group := flag.String("group", "", "active group id")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		log.Fatal("missing -user")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := identity.NewTokenVerifier(cfg.JWTSecret).Issue(identity.Principal{
		ID:          *user,
		Email:       *email,
		ActiveGroup: *group,
	}, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
}
