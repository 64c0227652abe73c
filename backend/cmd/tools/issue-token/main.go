package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/jwt"
)

func main() {
	var (
		configFolder string
		subject      string
		ttl          time.Duration
		admin        bool
	)
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.StringVar(&subject, "subject", "", "service or user the token is issued to")
	flag.DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	flag.BoolVar(&admin, "admin", false, "mark the token as admin")
	flag.Parse()

	if subject == "" {
		log.Fatal("-subject is required")
	}

	cfg := config.MustLoad(configFolder)
	token, err := jwt.New(cfg.JwtKey(), ttl).NewToken(jwt.Principal{Subject: subject, Admin: admin})
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println("Bearer token for", subject, "valid for", ttl)
	fmt.Println(token)
}
