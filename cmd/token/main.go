// Command token issues a session token for a user id, for local testing
// against a server that shares the same SECRET_KEY.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

func main() {
	userID := flag.Int64("user", 0, "user id to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}
	cfg := config.LoadConfig()

	if *userID <= 0 {
		log.Fatal("-user must be a positive id")
	}
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY is required")
	}

	token, err := utils.GenerateToken(cfg.SecretKey, strconv.FormatInt(*userID, 10), *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
