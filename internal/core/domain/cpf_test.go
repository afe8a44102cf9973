package domain

import "testing"

func TestNormalizeCPF(t *testing.T) {
	if got := NormalizeCPF("123.456.789-00"); got != "12345678900" {
		t.Errorf("expected 12345678900, got %s", got)
	}
}

func TestCPFPassword(t *testing.T) {
	if got := CPFPassword("123.456.789-00"); got != "1234" {
		t.Errorf("expected 1234, got %s", got)
	}
	if got := CPFPassword("12"); got != "" {
		t.Errorf("expected empty password for short CPF, got %s", got)
	}
}
