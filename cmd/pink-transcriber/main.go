package main

import (
	"os"

	"github.com/joho/godotenv"

	"pinktranscriber/internal/cli"
)

func main() {
	// Optional env files; real environment variables win.
	for _, f := range []string{".env", "pink-transcriber.env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	os.Exit(cli.Execute(os.Args[1:]))
}
