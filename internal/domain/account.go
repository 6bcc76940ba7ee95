package domain

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// Role determines what an account may do and which prefix its account
// number carries.
type Role string

const (
	RoleClient      Role = "client"
	RoleDistributor Role = "distributor"
	RoleAgent       Role = "agent"
)

// Status controls whether an account can authenticate or receive deposits.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Account represents a back-office managed account: clients, distributors
// and agents share the same record shape.
type Account struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	AccountNumber string     `json:"account_number"`
	Phone         string     `json:"phone"`
	NationalID    string     `json:"national_id"`
	Birthdate     string     `json:"birthdate"`
	Address       string     `json:"address"`
	Role          Role       `json:"role"`
	Status        Status     `json:"status"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Balance       int64      `json:"balance"`
	Archived      bool       `json:"archived"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

var (
	accountNumberRe     = regexp.MustCompile(`^(AC|AD|AG)\d{5}$`)
	distributorNumberRe = regexp.MustCompile(`^AD\d{5}$`)
	digitsRe            = regexp.MustCompile(`\D`)
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	return r == RoleClient || r == RoleDistributor || r == RoleAgent
}

// ValidStatus reports whether s is a known account status.
func ValidStatus(s Status) bool {
	return s == StatusActive || s == StatusBlocked
}

// AccountPrefix returns the two-letter account-number prefix for a role.
func AccountPrefix(role Role) string {
	switch role {
	case RoleDistributor:
		return "AD"
	case RoleAgent:
		return "AG"
	default:
		return "AC"
	}
}

// ValidAccountNumber reports whether s is a well-formed account number
// (role prefix followed by a 5-digit sequence).
func ValidAccountNumber(s string) bool {
	return accountNumberRe.MatchString(strings.ToUpper(s))
}

// IsDistributorNumber reports whether s is a distributor account number.
// Deposits are only allowed against this format.
func IsDistributorNumber(s string) bool {
	return distributorNumberRe.MatchString(strings.ToUpper(s))
}

// RandomAccountNumber produces a candidate account number for the role:
// prefix plus a random 5-digit sequence. Collision checking is the
// caller's responsibility.
func RandomAccountNumber(role Role) string {
	return fmt.Sprintf("%s%05d", AccountPrefix(role), rand.Intn(90000)+10000)
}

// FallbackAccountNumber derives an account number from the current time,
// used when randomized generation keeps colliding.
func FallbackAccountNumber(role Role, now time.Time) string {
	millis := fmt.Sprintf("%d", now.UnixMilli())
	return AccountPrefix(role) + millis[len(millis)-5:]
}

// NormalizeNationalID strips non-digits from raw and reformats the
// required 13 digits into the grouped display form "d ddd dddd ddddd".
func NormalizeNationalID(raw string) (string, error) {
	digits := digitsRe.ReplaceAllString(raw, "")
	if len(digits) != 13 {
		return "", Validation("national id must contain exactly 13 digits")
	}
	return fmt.Sprintf("%s %s %s %s", digits[0:1], digits[1:4], digits[4:8], digits[8:13]), nil
}

// NormalizePhone strips spacing and punctuation from a phone number and
// validates the digit count.
func NormalizePhone(raw string) (string, error) {
	digits := digitsRe.ReplaceAllString(raw, "")
	if len(digits) < 7 || len(digits) > 15 {
		return "", Validation("phone number must contain 7 to 15 digits")
	}
	return digits, nil
}
