package service

import (
	"fmt"
	"strings"
	"unicode"
)

// allowedUsernameChars mirrors the character set accepted for usernames.
const allowedUsernameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

// PasswordPolicy defines the requirements for password complexity.
type PasswordPolicy struct {
	RequiredLength         int
	RequiredUniqueChars    int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy returns the stock policy: six characters with a digit,
// a lowercase, an uppercase and a symbol.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		RequiredLength:         6,
		RequiredUniqueChars:    1,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Check returns one description per violated rule, or nil when the password
// is acceptable.
func (p PasswordPolicy) Check(password string) []string {
	var problems []string

	if len(password) < p.RequiredLength {
		problems = append(problems, fmt.Sprintf("Passwords must be at least %d characters.", p.RequiredLength))
	}

	var hasDigit, hasLower, hasUpper, hasSymbol bool
	unique := make(map[rune]struct{})
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSymbol = true
		}
		unique[r] = struct{}{}
	}

	if p.RequireNonAlphanumeric && !hasSymbol {
		problems = append(problems, "Passwords must have at least one non alphanumeric character.")
	}
	if p.RequireDigit && !hasDigit {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLowercase && !hasLower {
		problems = append(problems, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUppercase && !hasUpper {
		problems = append(problems, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if p.RequiredUniqueChars >= 1 && len(unique) < p.RequiredUniqueChars {
		problems = append(problems, fmt.Sprintf("Passwords must use at least %d different characters.", p.RequiredUniqueChars))
	}
	return problems
}

// checkUsername validates the characters of a username.
func checkUsername(username string) []string {
	if username == "" || strings.Trim(username, allowedUsernameChars) != "" {
		return []string{fmt.Sprintf("Username '%s' is invalid, can only contain letters or digits.", username)}
	}
	return nil
}
