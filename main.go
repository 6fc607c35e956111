package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// deepSeekBaseURL is the production chat completions endpoint base. Tests
// override Handler.aiBaseURL with an httptest server instead.
const deepSeekBaseURL = "https://api.deepseek.com"

func main() {
	log.SetPrefix("nutritrack-go-api: ")
	log.SetFlags(0)

	// .env is optional in production where config comes from the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	h := &Handler{
		db:        getDBPool(),
		aiBaseURL: deepSeekBaseURL,
		jwtSecret: []byte(secret),
	}

	router := gin.Default()
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	router.Run(":" + port)
}
