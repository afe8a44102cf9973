package domain

import "regexp"

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizeCPF strips everything but digits.
func NormalizeCPF(cpf string) string {
	return nonDigits.ReplaceAllString(cpf, "")
}

// CPFPassword returns the first four digits of a CPF, used as the login password.
func CPFPassword(cpf string) string {
	n := NormalizeCPF(cpf)
	if len(n) < 4 {
		return ""
	}
	return n[:4]
}
