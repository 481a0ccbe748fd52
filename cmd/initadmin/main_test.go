package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/harvest/internal/blob"
	"github.com/playperu/harvest/internal/repository"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	o, err := parseFlags([]string{"-password", "pw"}, &out)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.username != "admin" || o.password != "pw" || !o.hash {
		t.Errorf("options = %+v", o)
	}

	if _, err := parseFlags([]string{"-username", "host"}, &out); err == nil {
		t.Error("expected error without -password")
	}
	if _, err := parseFlags([]string{"-bogus"}, &out); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestWriteAdmin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		hash bool
	}{
		{name: "hashed", hash: true},
		{name: "plain", hash: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.New(blob.NewMemory())
			var out bytes.Buffer

			err := writeAdmin(ctx, repo, options{username: "host", password: "s3cret", hash: tt.hash}, &out)
			if err != nil {
				t.Fatalf("writeAdmin: %v", err)
			}
			if !strings.Contains(out.String(), `"host"`) {
				t.Errorf("output = %q", out.String())
			}

			got, err := repo.Admin(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if got.Username != "host" {
				t.Errorf("username = %q", got.Username)
			}
			if tt.hash {
				if err := bcrypt.CompareHashAndPassword([]byte(got.Password), []byte("s3cret")); err != nil {
					t.Errorf("stored hash does not match: %v", err)
				}
			} else if got.Password != "s3cret" {
				t.Errorf("password = %q", got.Password)
			}
		})
	}
}
