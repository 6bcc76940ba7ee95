/**
 * @description
 * This file contains the core business logic for account management:
 * registration, authentication, edits, bulk status changes, archival and
 * avatar updates. It orchestrates the account repository, the token
 * service and the event producer, keeping the API handlers thin.
 *
 * @notes
 * - Login is restricted by role: only agents may sign in to the back
 *   office. Archived and blocked accounts are refused before the password
 *   is even compared.
 */
package app

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/terangapay/backoffice/internal/domain"
	"github.com/terangapay/backoffice/internal/store"
	"github.com/terangapay/backoffice/pkg/rabbitmq"
)

const accountNumberAttempts = 5

// AccountService provides methods for managing accounts.
type AccountService struct {
	accounts store.AccountRepository
	tokens   *TokenService
	producer rabbitmq.Publisher
	exchange string
	avatars  *AvatarStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccountService creates a new instance of AccountService.
func NewAccountService(
	accounts store.AccountRepository,
	tokens *TokenService,
	producer rabbitmq.Publisher,
	exchange string,
	avatars *AvatarStore,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		tokens:   tokens,
		producer: producer,
		exchange: exchange,
		avatars:  avatars,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterInput is the field set accepted at registration.
type RegisterInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	Birthdate  string `json:"birthdate"`
	Address    string `json:"address"`
}

// Register validates the input, generates a role-prefixed account number
// and stores the new account with a hashed password.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Address = strings.TrimSpace(input.Address)
	input.Birthdate = strings.TrimSpace(input.Birthdate)

	switch {
	case input.FirstName == "" || input.LastName == "":
		return nil, domain.Validation("first and last name are required")
	case input.Birthdate == "":
		return nil, domain.Validation("birthdate is required")
	case input.Address == "":
		return nil, domain.Validation("address is required")
	case len(input.Password) < 6:
		return nil, domain.Validation("password must be at least 6 characters")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, domain.Validation("invalid email address")
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(input.Role)))
	if role == "" {
		role = domain.RoleClient
	}
	if !domain.ValidRole(role) {
		return nil, domain.Validationf("unknown role %q", input.Role)
	}

	phone, err := domain.NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	nationalID, err := domain.NormalizeNationalID(input.NationalID)
	if err != nil {
		return nil, err
	}

	inUse, err := s.accounts.EmailInUse(ctx, input.Email, "")
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, domain.ErrDuplicateEmail
	}

	number, err := s.generateAccountNumber(ctx, role)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:            uuid.NewString(),
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         input.Email,
		PasswordHash:  string(hash),
		AccountNumber: number,
		Phone:         phone,
		NationalID:    nationalID,
		Birthdate:     input.Birthdate,
		Address:       input.Address,
		Role:          role,
		Status:        domain.StatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventAccountCreated, domain.AccountCreatedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Role:          account.Role,
		CreatedAt:     account.CreatedAt,
	})
	return account, nil
}

// generateAccountNumber tries a few randomized candidates before falling
// back to a timestamp-derived suffix.
func (s *AccountService) generateAccountNumber(ctx context.Context, role domain.Role) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		candidate := domain.RandomAccountNumber(role)
		exists, err := s.accounts.AccountNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return domain.FallbackAccountNumber(role, s.now()), nil
}

// Authenticate verifies credentials and issues a session token. Only
// agents may authenticate; archived and blocked accounts are refused
// before the password comparison.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.Account, string, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if account.Role != domain.RoleAgent {
		return nil, "", domain.ErrForbidden
	}
	if account.Archived {
		return nil, "", domain.ErrForbidden
	}
	if account.Status == domain.StatusBlocked {
		return nil, "", domain.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// EditInput carries optional account edits; nil fields are left untouched.
type EditInput struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	Status     *string `json:"status"`
	Phone      *string `json:"phone"`
	NationalID *string `json:"national_id"`
	Birthdate  *string `json:"birthdate"`
	Address    *string `json:"address"`
}

// Edit applies an edit in one of two modes. Agents may change any field,
// subject to email-uniqueness and national-id revalidation. Everyone else
// is limited to name, contact and address; email, role, national id and
// birthdate stay immutable.
func (s *AccountService) Edit(ctx context.Context, actorRole domain.Role, targetID string, input EditInput) (*domain.Account, error) {
	if _, err := uuid.Parse(targetID); err != nil {
		return nil, domain.Validation("invalid account identifier")
	}
	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		account.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		account.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		phone, err := domain.NormalizePhone(*input.Phone)
		if err != nil {
			return nil, err
		}
		account.Phone = phone
	}
	if input.Address != nil {
		account.Address = strings.TrimSpace(*input.Address)
	}

	if actorRole == domain.RoleAgent {
		if input.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*input.Email))
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, domain.Validation("invalid email address")
			}
			inUse, err := s.accounts.EmailInUse(ctx, email, account.ID)
			if err != nil {
				return nil, err
			}
			if inUse {
				return nil, domain.ErrDuplicateEmail
			}
			account.Email = email
		}
		if input.NationalID != nil && strings.TrimSpace(*input.NationalID) != "" {
			nationalID, err := domain.NormalizeNationalID(*input.NationalID)
			if err != nil {
				return nil, err
			}
			account.NationalID = nationalID
		}
		if input.Birthdate != nil {
			account.Birthdate = strings.TrimSpace(*input.Birthdate)
		}
		if input.Role != nil {
			role := domain.Role(strings.ToLower(strings.TrimSpace(*input.Role)))
			if !domain.ValidRole(role) {
				return nil, domain.Validationf("unknown role %q", *input.Role)
			}
			account.Role = role
		}
		if input.Status != nil {
			status := domain.Status(strings.ToLower(strings.TrimSpace(*input.Status)))
			if !domain.ValidStatus(status) {
				return nil, domain.Validationf("unknown status %q", *input.Status)
			}
			account.Status = status
		}
		if input.Password != nil {
			if len(*input.Password) < 6 {
				return nil, domain.Validation("password must be at least 6 characters")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			account.PasswordHash = string(hash)
		}
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// BulkSetStatus blocks or unblocks a set of accounts and reports how many
// rows were modified.
func (s *AccountService) BulkSetStatus(ctx context.Context, ids []string, status domain.Status) (int64, error) {
	if err := validateIDList(ids); err != nil {
		return 0, err
	}
	if !domain.ValidStatus(status) {
		return 0, domain.Validationf("unknown status %q", status)
	}
	return s.accounts.SetStatus(ctx, ids, status)
}

// Archive soft-deletes one account. Archiving an already-archived account
// is a no-op success; the original archival timestamp is preserved.
func (s *AccountService) Archive(ctx context.Context, id string) (*domain.Account, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, domain.Validation("invalid account identifier")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if account.Archived {
		return account, false, nil
	}
	at := s.now()
	account.Archived = true
	account.ArchivedAt = &at
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// BulkArchive soft-deletes a set of accounts, skipping those already
// archived, and reports how many rows were modified.
func (s *AccountService) BulkArchive(ctx context.Context, ids []string) (int64, error) {
	if err := validateIDList(ids); err != nil {
		return 0, err
	}
	return s.accounts.ArchiveMany(ctx, ids, s.now())
}

// List returns accounts, excluding archived ones unless requested.
func (s *AccountService) List(ctx context.Context, includeArchived bool) ([]domain.Account, error) {
	return s.accounts.List(ctx, includeArchived)
}

// UpdateAvatar stores the uploaded image, deletes the previous avatar file
// if one existed and updates the account's avatar reference.
func (s *AccountService) UpdateAvatar(ctx context.Context, id, contentType string, r io.Reader) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.Validation("invalid account identifier")
	}
	if _, ok := allowedAvatarTypes[contentType]; !ok {
		return nil, domain.Validation("unsupported file type; allowed: jpg, jpeg, png, webp")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	urlPath, err := s.avatars.Save(contentType, r)
	if err != nil {
		return nil, err
	}
	if account.AvatarURL != "" {
		s.avatars.Remove(account.AvatarURL)
	}
	account.AvatarURL = urlPath
	if err := s.accounts.Update(ctx, account); err != nil {
		s.avatars.Remove(urlPath)
		return nil, err
	}
	return account, nil
}

// EnsureSeedAgent provisions the initial operator account when it does not
// exist yet. Without it a fresh deployment has no account able to log in.
// Leaving both credentials unset skips provisioning; setting only one is a
// misconfiguration and fails the bootstrap.
func (s *AccountService) EnsureSeedAgent(ctx context.Context, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" && password == "" {
		s.logger.Warn("seed agent not configured; no account will be able to log in until one is provisioned")
		return nil
	}
	if email == "" || password == "" {
		return errors.New("seed agent requires both an email and a password")
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	number, err := s.generateAccountNumber(ctx, domain.RoleAgent)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	first, last := splitName(name)
	agent := &domain.Account{
		ID:            uuid.NewString(),
		FirstName:     first,
		LastName:      last,
		Email:         email,
		PasswordHash:  string(hash),
		AccountNumber: number,
		Role:          domain.RoleAgent,
		Status:        domain.StatusActive,
	}
	if err := s.accounts.Create(ctx, agent); err != nil {
		return err
	}
	s.logger.Info("seed agent created", zap.String("email", email), zap.String("account_number", number))
	return nil
}

func (s *AccountService) publish(ctx context.Context, routingKey string, body any) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Error("event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func validateIDList(ids []string) error {
	if len(ids) == 0 {
		return domain.Validation("provide a non-empty list of account identifiers")
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return domain.Validationf("invalid account identifier %q", id)
		}
	}
	return nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Agent", "Operator"
	}
	if len(parts) == 1 {
		return parts[0], "Agent"
	}
	return parts[0], strings.Join(parts[1:], " ")
}
