package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/sensevend-next/internal/config"
)

func TestValidatePassword(t *testing.T) {
	policy := config.PasswordPolicyConfig{MinLength: 8, RequireUpper: true, RequireNumber: true}

	cases := []struct {
		name     string
		password string
		wantWeak bool
	}{
		{name: "ok", password: "Portal2024", wantWeak: false},
		{name: "too_short", password: "Ab1", wantWeak: true},
		{name: "no_upper", password: "portal2024", wantWeak: true},
		{name: "no_number", password: "PortalPass", wantWeak: true},
		{name: "over_bcrypt_limit", password: "A1" + strings.Repeat("x", passwordMaxBytes), wantWeak: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(policy, tc.password)
			if tc.wantWeak {
				if !errors.Is(err, ErrWeakPassword) {
					t.Fatalf("expected ErrWeakPassword, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid password, got %v", err)
			}
		})
	}
}

func TestValidatePasswordLengthCapWithoutPolicy(t *testing.T) {
	// 策略全关时超长口令仍要被拒，bcrypt 不接受超过 72 字节的输入
	err := validatePassword(config.PasswordPolicyConfig{}, strings.Repeat("x", passwordMaxBytes+1))
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := validatePassword(config.PasswordPolicyConfig{}, "short"); err != nil {
		t.Fatalf("expected nil for permissive policy, got %v", err)
	}
}
