package account

import (
	"errors"
	"testing"
)

func TestKeyValidate(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want error
	}{
		{"valid", Key{Service: "app", Account: "user1"}, nil},
		{"empty service", Key{Account: "user1"}, ErrEmptyService},
		{"empty account", Key{Service: "app"}, ErrEmptyAccount},
		{"both empty", Key{}, ErrEmptyService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.key.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewCredential(t *testing.T) {
	c, err := NewCredential("app", "user1", "s3cr3t")
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	if string(c.Password) != "s3cr3t" {
		t.Errorf("expected s3cr3t, got %q", c.Password)
	}
}

func TestCredentialInvalidUTF8(t *testing.T) {
	c := Credential{
		Key:      Key{Service: "app", Account: "user1"},
		Password: []byte{0xff, 0xfe},
	}
	if err := c.Validate(); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestCredentialEmptyPasswordAllowed(t *testing.T) {
	if _, err := NewCredential("app", "user1", ""); err != nil {
		t.Errorf("empty password should be allowed: %v", err)
	}
}
