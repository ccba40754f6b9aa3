// Command keygen creates an RSA key pair for local development and signs a
// session token with it. Put the printed public key in CLERK_JWT_KEY and
// send the token as "Authorization: Bearer <token>".
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	subject := flag.String("sub", "user_local", "token subject (user id)")
	email := flag.String("email", "dev@example.com", "email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal public key: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   *subject,
		"email": *email,
		"sid":   "sess_local",
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(*ttl).Unix(),
	}).SignedString(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Add this to your .env:")
	fmt.Printf("CLERK_JWT_KEY=\"%s\"\n", pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	fmt.Printf("Bearer token (expires %s):\n", now.Add(*ttl).Format(time.RFC3339))
	fmt.Println(token)
}
