// Command tokengen prints a bearer token for the favourites gateway.
//
// Usage:
//
//	go run ./tools/tokengen -user 42 [-secret s3cret] [-exp 1h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	userID := flag.String("user", "", "numeric platform user ID to embed in the token (required)")
	secret := flag.String("secret", "", "HMAC signing secret (or set JWT_SECRET env var)")
	expiry := flag.Duration("exp", 24*time.Hour, "token expiry duration (e.g. 1h, 72h)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "error: -user flag is required")
		flag.Usage()
		os.Exit(1)
	}
	uid, err := models.ParseUserID(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: -user: %v\n", err)
		os.Exit(1)
	}

	signingSecret := *secret
	if signingSecret == "" {
		signingSecret = os.Getenv("JWT_SECRET")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": uid.String(),
		"iat": now.Unix(),
		"exp": now.Add(*expiry).Unix(),
	}

	var signed string
	if signingSecret == "" {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
		signed, err = token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating token: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Warning: token is unsigned (alg=none); do not use in production")
	} else {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err = token.SignedString([]byte(signingSecret))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error signing token: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "Token for user %d (expires %s):\n", uid, now.Add(*expiry).Format(time.RFC3339))
	fmt.Println(signed)
}
