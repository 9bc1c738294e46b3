// Command tenant-token mints a bearer token that selects a tenant when the
// API runs with auth.jwt_secret set.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"dataservices/internal/auth"
	"dataservices/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	tenantID := flag.String("tenant", "", "tenant id to embed in the token")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	if *tenantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *ttl == 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	token, err := auth.NewSigner(cfg.Auth.JWTSecret).GenerateToken(*tenantID, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
