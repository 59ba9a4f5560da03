package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/users"
	"github.com/taskpro/backend/pkg/apperr"
)

var (
	ErrInvalidCredentials   = apperr.New(apperr.Unauthenticated, "invalid email or password")
	ErrOrganizationRequired = apperr.New(apperr.Validation, "organizationName is required")
	ErrInviteRequired       = apperr.New(apperr.Validation, "inviteToken is required")
	ErrUnknownOrganization  = apperr.New(apperr.Validation, "organization not found")
	ErrInviteRoleMismatch   = apperr.New(apperr.Validation, "invite does not grant this role")
	ErrInviteOrgMismatch    = apperr.New(apperr.Validation, "organization does not match invite")
	ErrInviteEmailMismatch  = apperr.New(apperr.Validation, "invite was issued for a different email")
)

// UserStore is the credential store used for registration and login.
type UserStore interface {
	Create(ctx context.Context, p users.CreateParams) (*models.User, error)
	FindByEmail(ctx context.Context, email string, role models.Role) (*models.User, error)
}

// OrganizationStore creates and resolves organizations during registration.
type OrganizationStore interface {
	Create(ctx context.Context, name, theme string) (*models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByName(ctx context.Context, name string) (*models.Organization, error)
	GetOrCreateByName(ctx context.Context, name string) (*models.Organization, error)
}

// InviteRedeemer validates and consumes invite tokens.
type InviteRedeemer interface {
	Validate(ctx context.Context, token string) (*models.Invite, error)
	Consume(ctx context.Context, id uuid.UUID) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, plain string) bool
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements registration and login.
type Service struct {
	users   UserStore
	orgs    OrganizationStore
	invites InviteRedeemer
	hasher  PasswordHasher
	tokens  *JWTService
	tx      TxRunner
}

// NewService creates an auth service.
func NewService(userStore UserStore, orgs OrganizationStore, invites InviteRedeemer, hasher PasswordHasher, tokens *JWTService, tx TxRunner) *Service {
	return &Service{users: userStore, orgs: orgs, invites: invites, hasher: hasher, tokens: tokens, tx: tx}
}

// Session is the result of a successful registration or login.
type Session struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Registration is the profile submitted by a registering user.
type Registration struct {
	Name             string
	Email            string
	Password         string
	OrganizationName string
	InviteToken      string
}

func (r *Registration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	r.InviteToken = strings.TrimSpace(r.InviteToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register joins through an invite when one is given, otherwise creates a new
// organization with the caller as its Admin.
func (s *Service) Register(ctx context.Context, r Registration) (*Session, error) {
	r.normalize()
	if r.InviteToken != "" {
		return s.registerWithInvite(ctx, r, "")
	}
	if r.OrganizationName == "" {
		return nil, ErrOrganizationRequired
	}
	return s.registerInOrganization(ctx, r, models.RoleAdmin, func(ctx context.Context) (*models.Organization, error) {
		return s.orgs.Create(ctx, r.OrganizationName, models.DefaultTheme)
	})
}

// RegisterAdmin registers an Admin, creating the named organization if it does not exist yet.
func (s *Service) RegisterAdmin(ctx context.Context, r Registration) (*Session, error) {
	r.normalize()
	if r.OrganizationName == "" {
		return nil, ErrOrganizationRequired
	}
	return s.registerInOrganization(ctx, r, models.RoleAdmin, func(ctx context.Context) (*models.Organization, error) {
		return s.orgs.GetOrCreateByName(ctx, r.OrganizationName)
	})
}

// RegisterManager registers through an invite that must grant the Manager role.
func (s *Service) RegisterManager(ctx context.Context, r Registration) (*Session, error) {
	r.normalize()
	if r.InviteToken == "" {
		return nil, ErrInviteRequired
	}
	return s.registerWithInvite(ctx, r, models.RoleManager)
}

// RegisterMember registers a Member into an existing organization.
func (s *Service) RegisterMember(ctx context.Context, r Registration) (*Session, error) {
	r.normalize()
	if r.OrganizationName == "" {
		return nil, ErrOrganizationRequired
	}
	return s.registerInOrganization(ctx, r, models.RoleMember, func(ctx context.Context) (*models.Organization, error) {
		org, err := s.orgs.GetByName(ctx, r.OrganizationName)
		if apperr.Is(err, apperr.NotFound) {
			return nil, ErrUnknownOrganization
		}
		return org, err
	})
}

func (s *Service) registerInOrganization(ctx context.Context, r Registration, role models.Role, resolve func(context.Context) (*models.Organization, error)) (*Session, error) {
	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var user *models.User
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		org, err := resolve(ctx)
		if err != nil {
			return err
		}
		user, err = s.users.Create(ctx, users.CreateParams{
			Name:           r.Name,
			Email:          r.Email,
			PasswordHash:   hash,
			OrganizationID: org.ID,
			Role:           role,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// registerWithInvite validates, creates the identity and consumes the invite in one transaction.
// If another registration consumes the invite first, Consume fails and the identity is rolled back.
func (s *Service) registerWithInvite(ctx context.Context, r Registration, requiredRole models.Role) (*Session, error) {
	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var user *models.User
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invites.Validate(ctx, r.InviteToken)
		if err != nil {
			return err
		}
		if requiredRole != "" && inv.Role != requiredRole {
			return ErrInviteRoleMismatch
		}
		if !strings.EqualFold(inv.Email, r.Email) {
			return ErrInviteEmailMismatch
		}
		if r.OrganizationName != "" {
			org, err := s.orgs.GetByID(ctx, inv.OrganizationID)
			if err != nil {
				return err
			}
			if !strings.EqualFold(org.Name, r.OrganizationName) {
				return ErrInviteOrgMismatch
			}
		}
		user, err = s.users.Create(ctx, users.CreateParams{
			Name:           r.Name,
			Email:          r.Email,
			PasswordHash:   hash,
			OrganizationID: inv.OrganizationID,
			Role:           inv.Role,
			InvitedBy:      inv.InvitedBy,
		})
		if err != nil {
			return err
		}
		return s.invites.Consume(ctx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login authenticates by email and password. A non-empty role restricts login to identities with that role.
func (s *Service) Login(ctx context.Context, email, password string, role models.Role) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email), role)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Generate(u)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: u.ToPublic()}, nil
}
