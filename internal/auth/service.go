package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/models"
	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/internal/session"
	"github.com/eduvoyage/admin-gateway/internal/transport"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

// Service authenticates against the upstream admin API and owns the session
// lifecycle. Unlike the entity containers, the session is explicitly reset on
// logout.
type Service struct {
	sender   transport.Sender
	store    session.Store
	validate *validator.Validate
	notifier *notify.Notifier
	logger   *zap.Logger
	baseURL  string
}

// NewService wires the auth service.
func NewService(sender transport.Sender, store session.Store, validate *validator.Validate, notifier *notify.Notifier, logger *zap.Logger, baseURL string) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sender:   sender,
		store:    store,
		validate: validate,
		notifier: notifier,
		logger:   logger,
		baseURL:  baseURL,
	}
}

// Login performs the basic-auth login call and persists the session.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (models.SessionInfo, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.SessionInfo{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	raw, err := s.sender.Send(ctx, transport.Descriptor{
		Endpoint: s.baseURL + "/auth/login",
		Method:   http.MethodPost,
		AuthMode: transport.AuthBasic,
		Body:     req,
	})
	if err != nil {
		if s.notifier != nil {
			s.notifier.Error("auth", "login", appErrors.FromError(err).Message)
		}
		return models.SessionInfo{}, err
	}

	user, token, err := decodeLogin(raw)
	if err != nil {
		return models.SessionInfo{}, err
	}

	if err := s.store.SaveLogin(ctx, user, token); err != nil {
		return models.SessionInfo{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	if s.notifier != nil {
		s.notifier.Success("auth", "login", "logged in as "+user.Email)
	}
	s.logger.Info("admin logged in", zap.String("email", user.Email), zap.String("role", user.Role))

	return session.Info(ctx, s.store), nil
}

// Logout clears the persisted session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	if s.notifier != nil {
		s.notifier.Success("auth", "logout", "logged out")
	}
	return nil
}

// Me returns the local session view.
func (s *Service) Me(ctx context.Context) (models.SessionInfo, error) {
	info := session.Info(ctx, s.store)
	if !info.LoggedIn {
		return models.SessionInfo{}, appErrors.Clone(appErrors.ErrUnauthorized, "not logged in")
	}
	return info, nil
}

// decodeLogin tolerates the upstream's two historical login shapes: a user
// document carrying a token field, or {token, user}. Either may sit inside a
// data envelope.
func decodeLogin(raw json.RawMessage) (models.AdminUser, string, error) {
	body := raw
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		body = env.Data
	}

	var split struct {
		Token string            `json:"token"`
		User  *models.AdminUser `json:"user"`
	}
	if err := json.Unmarshal(body, &split); err == nil && split.User != nil && split.Token != "" {
		return *split.User, split.Token, nil
	}

	var user models.AdminUser
	if err := json.Unmarshal(body, &user); err != nil || user.Token == "" {
		return models.AdminUser{}, "", appErrors.Transport("login response missing token", 0)
	}
	token := user.Token
	user.Token = ""
	return user, token, nil
}
