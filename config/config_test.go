package config_test

import (
	"testing"

	"github.com/skryldev/chainconv/config"
)

func TestDefault_IsValid(t *testing.T) {
	if err := config.Validate(config.Default()); err != nil {
		t.Errorf("Default() should be valid, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"max chain len too small", func(c *config.Config) { c.MaxChainLen = 1 }, true},
		{"zero search timeout", func(c *config.Config) { c.SearchTimeout = 0 }, true},
		{"zero queue size", func(c *config.Config) { c.QueueSize = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.mutate(&c)
			err := config.Validate(c)
			if tc.wantErr && err == nil {
				t.Error("expected a validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
