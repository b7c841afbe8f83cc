package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/voicebot/voicebot/internal/shared"
)

// LogoutHook runs after an account signs out.
type LogoutHook func(ctx context.Context, accountID string) error

// Option customises a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost, mostly for tests.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithLogoutHook registers a hook invoked on Logout.
func WithLogoutHook(hook LogoutHook) Option {
	return func(s *Service) {
		if hook != nil {
			s.onLogout = append(s.onLogout, hook)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service wraps account and session business rules.
type Service struct {
	repo      Repository
	validate  *validator.Validate
	hashCost  int
	onLogout  []LogoutHook
	now       func() time.Time
	dummyHash []byte
}

// NewService constructs a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against when the email is unknown so both paths cost a hash.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("voicebot-dummy-password"), s.hashCost)
	return s
}

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// Register creates an account and signs the session in. A nil session only
// persists the account.
func (s *Service) Register(ctx context.Context, sess *shared.Session, in RegisterInput) (*Account, error) {
	in.Name = normalize(in.Name)
	in.Email = normalize(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, &ValidationError{Fields: map[string]string{"Password": msgTooLong}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	acct := &Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("auth: create account: %w", err)
	}
	if sess == nil {
		return acct, nil
	}
	if err := bind(sess, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Login validates credentials and signs the session in. The session is left
// untouched on failure.
func (s *Service) Login(ctx context.Context, sess *shared.Session, in LoginInput) (*Account, error) {
	in.Email = normalize(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}

	acct, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bind(sess, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Logout clears the session account and runs logout hooks. Hook failures
// are joined but never keep the session signed in.
func (s *Service) Logout(ctx context.Context, sess *shared.Session) error {
	if sess == nil {
		return shared.ErrSessionMissing
	}
	accountID := sess.User()
	sess.SetUser("")
	sess.Delete(shared.SessionAccountKey)
	if accountID == "" {
		return nil
	}
	var errs []error
	for _, hook := range s.onLogout {
		if err := hook(ctx, accountID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Current returns the account bound to the session, or nil.
func Current(sess *shared.Session) *Account {
	if sess == nil || sess.User() == "" {
		return nil
	}
	raw := sess.Get(shared.SessionAccountKey)
	if raw == "" {
		return nil
	}
	var acct Account
	if err := json.Unmarshal([]byte(raw), &acct); err != nil {
		return nil
	}
	if acct.ID != sess.User() {
		return nil
	}
	return &acct
}

func bind(sess *shared.Session, acct *Account) error {
	if sess == nil {
		return shared.ErrSessionMissing
	}
	snapshot, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("auth: encode session account: %w", err)
	}
	sess.SetUser(acct.ID)
	sess.Set(shared.SessionAccountKey, string(snapshot))
	return nil
}

func (s *Service) check(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("auth: validate: %w", err)
	}
	_, isLogin := form.(LoginInput)
	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = fieldMessage(fe, isLogin)
	}
	return verr
}

func fieldMessage(fe validator.FieldError, login bool) string {
	switch fe.Tag() {
	case "required":
		if login {
			return msgLoginRequired
		}
		return msgFillAll
	case "eqfield":
		return msgMismatch
	case "min":
		return msgTooShort
	case "max":
		return msgTooLong
	default:
		return fe.Error()
	}
}

func normalize(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}
