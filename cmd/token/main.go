// Command token prints a bearer token for the control API, signed with
// the configured auth secret.
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"sentinel/config"
	"sentinel/internals/security"
)

func main() {
	operator := flag.String("operator", "", "operator name embedded in the token")
	cfgPath := flag.String("config", "", "config file (defaults to $SENTINEL_CONFIG, then env.yaml)")
	flag.Parse()

	if *operator == "" {
		stdlog.Fatal("-operator is required")
	}

	path := *cfgPath
	if path == "" {
		path = os.Getenv("SENTINEL_CONFIG")
	}
	if path == "" {
		path = "env.yaml"
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	tokenSvc := security.NewTokenService(&cfg.Auth)
	token, err := tokenSvc.GenerateAccessToken(security.RequestClaims{Operator: *operator})
	if err != nil {
		stdlog.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(token)
}
