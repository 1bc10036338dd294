package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"portal/internal/apperr"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/validate"
)

var ErrNoSession = errors.New("session not found")

func badCredentials() error {
	return apperr.NewValidationError("email", "These credentials do not match our records")
}

// ----------------------------
// Context helpers
// ----------------------------

type ctxKeyUser struct{}

func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(models.User)
	return u, ok && u.ID != 0
}

// ActorFrom returns the actor of the request, anonymous when no session
// was resolved.
func ActorFrom(ctx context.Context) policy.Actor {
	u, ok := UserFrom(ctx)
	if !ok {
		return policy.Anonymous()
	}
	return Actor(u)
}

func Actor(u models.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}

// ----------------------------
// Stores
// ----------------------------

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionStore keeps login sessions. Create replaces the user's earlier
// sessions, so a new login signs out other devices. Get returns ErrNoSession
// for unknown or expired ids.
type SessionStore interface {
	Create(ctx context.Context, userID int64, lifetime time.Duration) (models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
}

// ----------------------------
// Service
// ----------------------------

type Service struct {
	users    UserStore
	sessions SessionStore
	validate *validate.Validator
	lifetime time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, v *validate.Validator, lifetime time.Duration, log logrus.FieldLogger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		validate: v,
		lifetime: lifetime,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Lifetime() time.Duration { return s.lifetime }

// Register creates a resident account.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (models.User, error) {
	return s.CreateUser(ctx, in, models.RoleResident)
}

// CreateUser creates an account with the given role. Admin accounts are only
// made this way, from the command line.
func (s *Service) CreateUser(ctx context.Context, in models.RegisterInput, role models.Role) (models.User, error) {
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.User{}, err
	}
	if !role.Valid() {
		return models.User{}, fmt.Errorf("create user: unknown role %q", role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return models.User{}, apperr.NewValidationError("email", "The email has already been taken")
		}
		return models.User{}, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return u, nil
}

// Login checks the credentials and opens a session for the user.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (models.Session, models.User, error) {
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.Session{}, models.User{}, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.WithField("email", in.Email).Info("login: unknown email")
		return models.Session{}, models.User{}, badCredentials()
	}
	if err != nil {
		return models.Session{}, models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		s.log.WithField("user_id", u.ID).Info("login: bad password")
		return models.Session{}, models.User{}, badCredentials()
	}

	sess, err := s.sessions.Create(ctx, u.ID, s.lifetime)
	if err != nil {
		return models.Session{}, models.User{}, fmt.Errorf("login: %w", err)
	}
	s.log.WithField("user_id", u.ID).Info("login")
	return sess, u, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.sessions.Delete(ctx, sid)
}

// Authenticate resolves a session id to its user. Expired sessions are
// removed on sight.
func (s *Service) Authenticate(ctx context.Context, sid string) (models.User, error) {
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return models.User{}, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		if err := s.sessions.Delete(ctx, sid); err != nil {
			s.log.WithError(err).WithField("user_id", sess.UserID).Warn("delete expired session")
		}
		return models.User{}, ErrNoSession
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, ErrNoSession
	}
	return u, err
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
