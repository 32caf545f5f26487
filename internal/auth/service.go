// Package auth implementa el ciclo de vida de sesión del portal admin:
// login, rotación de refresh tokens, logout, validación de sesión y la
// verificación step-up de password para operaciones destructivas.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cartelera/internal/audit"
	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/jwt"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
	"github.com/dropDatabas3/cartelera/internal/security/password"
)

// TokenPair es el resultado de login/refresh que viaja al cliente.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn es la vida del access token en segundos.
	ExpiresIn int64 `json:"expiresIn"`
}

// Session agrupa el par de tokens con la identidad del admin.
type Session struct {
	TokenPair
	Admin domain.Identity `json:"admin"`
}

// PolicyError transporta las razones de rechazo de la política de
// passwords en Register. La capa HTTP las expone como details del 400.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password rejected by policy: " + strings.Join(e.Reasons, ",")
}

// Service expone las operaciones de autenticación.
type Service interface {
	// Login valida credenciales y emite un par access+refresh, registrando
	// el refresh en el ledger. Email inexistente y password incorrecto
	// retornan el mismo domain.ErrInvalidCredentials.
	Login(ctx context.Context, email, plainPassword string) (*Session, error)

	// Refresh rota un refresh token: verifica firma y vigencia, consume la
	// fila del ledger y emite un par nuevo. Un token ya rotado, revocado o
	// expirado retorna domain.ErrUnauthenticated.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// Logout revoca el refresh token del ledger. Idempotente: revocar un
	// token ausente o basura también es éxito.
	Logout(ctx context.Context, refreshToken string) error

	// Authenticate valida un access token y confirma que el admin todavía
	// existe. Cualquier falla retorna domain.ErrUnauthenticated.
	Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error)

	// VerifyPassword es la prueba step-up: re-verifica el password del
	// admin ya autenticado. Mismatch retorna domain.ErrInvalidPassword.
	VerifyPassword(ctx context.Context, adminID, plainPassword string) error

	// Register crea una cuenta nueva aplicando la política de passwords y
	// emite una sesión con la misma forma que Login. Email ya usado
	// retorna domain.ErrConflict.
	Register(ctx context.Context, email, plainPassword string) (*Session, error)
}

// Deps son las dependencias del servicio.
type Deps struct {
	Admins repository.AdminRepository
	Tokens repository.RefreshTokenRepository
	Issuer *jwt.Issuer
	Policy password.Policy
}

type service struct {
	deps Deps
}

func New(deps Deps) Service {
	return &service{deps: deps}
}

// hashToken calcula el hash que se persiste en el ledger. Nunca se guarda
// el token firmado en claro.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *service) Login(ctx context.Context, email, plainPassword string) (*Session, error) {
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("login"))

	admin, err := s.deps.Admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// mismo error que password incorrecto, sin filtrar existencia
			log.Info("login rechazado", zap.String("reason", "unknown_email"))
			audit.Log(ctx, audit.EventLoginFailed, zap.String("reason", "unknown_email"))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: get admin by email: %w", err)
	}
	if !password.Verify(plainPassword, admin.PasswordHash) {
		log.Info("login rechazado", logger.AdminID(admin.ID), zap.String("reason", "bad_password"))
		audit.Log(ctx, audit.EventLoginFailed, logger.AdminID(admin.ID), zap.String("reason", "bad_password"))
		return nil, domain.ErrInvalidCredentials
	}

	sess, err := s.issueSession(ctx, admin)
	if err != nil {
		return nil, err
	}
	log.Info("login ok", logger.AdminID(admin.ID))
	audit.Log(ctx, audit.EventLogin, logger.AdminID(admin.ID))
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("refresh"))

	claims, err := s.deps.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		log.Info("refresh rechazado", zap.String("reason", "bad_token"))
		return nil, domain.ErrUnauthenticated
	}

	admin, err := s.deps.Admins.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// admin borrado mientras el token seguía vivo
			log.Info("refresh rechazado", zap.String("reason", "admin_gone"))
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("auth: get admin: %w", err)
	}

	// emitir primero: si la firma fallara no queremos haber consumido la
	// fila vieja del ledger
	access, _, err := s.deps.Issuer.IssueAccess(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("auth: issue access: %w", err)
	}
	newRefresh, refreshExp, err := s.deps.Issuer.IssueRefresh(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("auth: issue refresh: %w", err)
	}

	// gate single-use: de dos refresh concurrentes con el mismo token,
	// exactamente uno consume la fila
	_, err = s.deps.Tokens.Rotate(ctx, hashToken(refreshToken), repository.CreateRefreshTokenInput{
		TokenHash: hashToken(newRefresh),
		AdminID:   admin.ID,
		ExpiresAt: refreshExp,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("refresh rechazado", logger.AdminID(admin.ID), zap.String("reason", "not_in_ledger"))
			audit.Log(ctx, audit.EventRefreshDenied, logger.AdminID(admin.ID), zap.String("reason", "not_in_ledger"))
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("auth: rotate refresh: %w", err)
	}

	log.Info("refresh ok", logger.AdminID(admin.ID))
	return &Session{
		TokenPair: TokenPair{
			AccessToken:  access,
			RefreshToken: newRefresh,
			ExpiresIn:    int64(s.deps.Issuer.AccessTTL.Seconds()),
		},
		Admin: domain.Identity{ID: admin.ID, Email: admin.Email},
	}, nil
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.deps.Tokens.Delete(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("auth: revoke refresh: %w", err)
	}
	logger.From(ctx).Info("logout", logger.Component("auth"))
	return nil
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := s.deps.Issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	// chequeo de existencia por request: borrar el admin revoca de facto
	// todos sus access tokens vigentes
	admin, err := s.deps.Admins.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("auth: get admin: %w", err)
	}
	return &domain.Identity{ID: admin.ID, Email: admin.Email}, nil
}

func (s *service) VerifyPassword(ctx context.Context, adminID, plainPassword string) error {
	admin, err := s.deps.Admins.GetByID(ctx, adminID)
	if err != nil {
		// el adminID viene de un access token ya validado: que no exista acá
		// es un estado interno inconsistente, no un 401
		return fmt.Errorf("auth: step-up lookup %s: %w", adminID, err)
	}
	if !password.Verify(plainPassword, admin.PasswordHash) {
		logger.From(ctx).Info("step-up rechazado", logger.Component("auth"), logger.AdminID(adminID))
		audit.Log(ctx, audit.EventStepUpFailed, logger.AdminID(adminID))
		return domain.ErrInvalidPassword
	}
	return nil
}

func (s *service) Register(ctx context.Context, email, plainPassword string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &PolicyError{Reasons: []string{"invalid_email"}}
	}
	if ok, reasons := s.deps.Policy.Validate(plainPassword); !ok {
		return nil, &PolicyError{Reasons: reasons}
	}
	hash, err := password.Hash(password.Default, plainPassword)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	admin, err := s.deps.Admins.Create(ctx, repository.CreateAdminInput{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("auth: create admin: %w", err)
	}
	logger.From(ctx).Info("admin registrado", logger.Component("auth"), logger.AdminID(admin.ID))
	audit.Log(ctx, audit.EventAdminCreated, logger.AdminID(admin.ID), logger.Email(admin.Email))
	return s.issueSession(ctx, admin)
}

func (s *service) issueSession(ctx context.Context, admin *repository.Admin) (*Session, error) {
	access, _, err := s.deps.Issuer.IssueAccess(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("auth: issue access: %w", err)
	}
	refresh, refreshExp, err := s.deps.Issuer.IssueRefresh(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("auth: issue refresh: %w", err)
	}
	if _, err := s.deps.Tokens.Create(ctx, repository.CreateRefreshTokenInput{
		TokenHash: hashToken(refresh),
		AdminID:   admin.ID,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, fmt.Errorf("auth: persist refresh: %w", err)
	}
	return &Session{
		TokenPair: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(s.deps.Issuer.AccessTTL.Seconds()),
		},
		Admin: domain.Identity{ID: admin.ID, Email: admin.Email},
	}, nil
}
