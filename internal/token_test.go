package internal

import (
	"encoding/hex"
	"testing"
)

func TestNewResetTokenIsHexOfRequestedSize(t *testing.T) {
	token, err := NewResetToken(32)
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}

	other, err := NewResetToken(32)
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if token == other {
		t.Fatal("two draws produced the same token")
	}
}

func TestNewResetTokenRejectsSmallSizes(t *testing.T) {
	if _, err := NewResetToken(8); err == nil {
		t.Fatal("expected error for undersized token")
	}
}

func TestHashResetTokenIsDeterministic(t *testing.T) {
	a := HashResetToken("abc")
	b := HashResetToken("abc")
	c := HashResetToken("abd")

	if a != b {
		t.Fatal("same input hashed differently")
	}
	if a == c {
		t.Fatal("different inputs collided")
	}
}

func TestNormalizeEmail(t *testing.T) {
	for input, want := range map[string]string{
		"  MARIA@Exemplo.edu.BR ":     "maria@exemplo.edu.br",
		"maria@exemplo.edu.br":        "maria@exemplo.edu.br",
		"\tJoao.Silva@ALUNO.edu.br\n": "joao.silva@aluno.edu.br",
	} {
		if got := NormalizeEmail(input); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", input, got, want)
		}
	}
}
