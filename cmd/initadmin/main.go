// Command initadmin writes the admin account into the configured store.
// It uses the same STORE_BACKEND settings as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/harvest/internal/blob"
	"github.com/playperu/harvest/internal/config"
	"github.com/playperu/harvest/internal/repository"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	username string
	password string
	hash     bool
}

func parseFlags(args []string, out io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("initadmin", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.username, "username", "admin", "admin username")
	fs.StringVar(&o.password, "password", "", "admin password (required)")
	fs.BoolVar(&o.hash, "hash", true, "store a bcrypt hash instead of the plain password")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.username == "" || o.password == "" {
		return o, errors.New("-username and -password are required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := blob.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	return writeAdmin(ctx, repository.New(store), o, stdout)
}

func writeAdmin(ctx context.Context, repo *repository.Repository, o options, stdout io.Writer) error {
	password := o.password
	if o.hash {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		password = string(h)
	}

	err := repo.SetAdmin(ctx, repository.AdminCredentials{Username: o.username, Password: password})
	if err != nil {
		return fmt.Errorf("writing admin credentials: %w", err)
	}
	fmt.Fprintf(stdout, "admin account %q saved\n", o.username)
	return nil
}
