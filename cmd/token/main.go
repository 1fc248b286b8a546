// Command token issues a signed API token for a calling service.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/internal/services"
)

func main() {
	client := flag.String("client", "", "calling service name")
	tier := flag.String("tier", "", "rate limit tier (premium, enterprise)")
	scope := flag.String("scope", "", "comma separated scopes; empty grants all")
	flag.Parse()

	if *client == "" {
		log.Fatal("-client is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var scopes []string
	if *scope != "" {
		for _, s := range strings.Split(*scope, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}

	auth := services.NewAuthService(&cfg.Auth, logrus.New(), nil)
	token, err := auth.GenerateToken(*client, *tier, scopes)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
}
