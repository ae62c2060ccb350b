// Command contractdump writes the GraphQL document and JSON Schema of every
// response contract to a directory, for diffing against the upstream API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/schema"
)

func main() {
	out := flag.String("out", "contracts", "output directory")
	flag.Parse()

	if err := run(*out); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(out string) error {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, c := range contract.All() {
		doc, err := schema.Document(c.Name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(out, c.Name+".schema.json"), []byte(doc+"\n"), 0o644); err != nil {
			return fmt.Errorf("write schema for %s: %w", c.Name, err)
		}
		if err := os.WriteFile(filepath.Join(out, c.Name+".graphql"), []byte(c.Document+"\n"), 0o644); err != nil {
			return fmt.Errorf("write document for %s: %w", c.Name, err)
		}
		slog.Info("contract written", "name", c.Name)
	}
	return nil
}
