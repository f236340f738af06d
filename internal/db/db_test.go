package db

import (
	"net/url"
	"testing"

	"github.com/warenvoyage/apiserver/config"
)

func TestURL(t *testing.T) {
	raw := URL(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "warenvoyage",
		Password: "p@ss/word",
		DBName:   "identity",
		UseSSL:   true,
	})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if u.Scheme != "postgres" || u.Host != "db.internal:6543" || u.Path != "/identity" {
		t.Fatalf("unexpected url %q", raw)
	}
	if pw, _ := u.User.Password(); pw != "p@ss/word" {
		t.Fatalf("password not preserved: %q", pw)
	}
	if u.Query().Get("sslmode") != "require" {
		t.Fatalf("unexpected sslmode in %q", raw)
	}
}

func TestURLDisablesSSLByDefault(t *testing.T) {
	u, err := url.Parse(URL(config.DatabaseConfig{Host: "localhost", Port: 5432}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Query().Get("sslmode") != "disable" {
		t.Fatalf("expected sslmode=disable, got %q", u.RawQuery)
	}
}
