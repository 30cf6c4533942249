package main

import (
	"fmt"
	"os"

	"go-profile-backend/pkg/auth"
)

// Prints bcrypt hashes, at the cost the server uses, for seeding users by hand:
//
//	go run ./scripts longenough1 another-password
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genhash <password>...")
		os.Exit(2)
	}

	hasher := auth.NewPasswordHasher()
	for _, pass := range os.Args[1:] {
		hash, err := hasher.Hash(pass)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fmt.Printf("Password: %s\nHash: %s\n\n", pass, hash)
	}
}
