package client

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/session"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

// Registration is the sign-up payload; OTP comes from SendOTP.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// PasswordReset is forwarded to the forgot-password endpoint.
type PasswordReset struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type AuthService struct {
	caller
}

// NewAuthService also registers itself as the session's refresher.
func NewAuthService(chain *transport.Chain, sess *session.Session, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AuthService{caller{chain: chain, session: sess, logger: logger}}
	sess.SetRefresher(a)
	return a
}

// Login stores the returned tokens in the durable tier when rememberMe is
// set and returns the user profile.
func (a *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) common.Result[entity.User] {
	email = strings.TrimSpace(email)
	v := common.NewValidator().
		Field("email", email, common.Required, common.Email).
		Field("password", password, common.Required)
	if v.HasErrors() {
		return validationFailure[entity.User](v)
	}

	req, err := transport.NewJSONRequest(routes.Login, nil, map[string]string{"email": email, "password": password})
	if err != nil {
		return common.Fail[entity.User](common.KindInternal, err.Error())
	}
	resp, f := a.do(ctx, req, false)
	if f != nil {
		return common.FailWith[entity.User](f)
	}

	login, ok := upstream.NormalizeLogin(resp.Body)
	if !ok {
		return common.Fail[entity.User](common.KindUpstream, "login response did not include a token")
	}
	if err := a.session.SetAuthToken(ctx, login.Token, rememberMe, &login); err != nil {
		a.logger.Error("client.login.store_error", "error", err)
		return common.Fail[entity.User](common.KindInternal, "could not save the session")
	}
	user := entity.UserFromJSON(login.User)
	if user.Email == "" {
		user.Email = email
	}
	a.logger.Info("client.login.ok", "uid", user.UID, "remember", rememberMe)
	return common.Ok(user)
}

func (a *AuthService) Register(ctx context.Context, r Registration) common.Result[string] {
	v := common.NewValidator().
		Field("name", r.Name, common.Required).
		Field("email", r.Email, common.Required, common.Email).
		Field("password", r.Password, common.Required, common.MinLength(8)).
		Field("otp", r.OTP, common.Required, common.Digits)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	return a.send(ctx, routes.Register, r, false, "account created")
}

func (a *AuthService) SendOTP(ctx context.Context, email string) common.Result[string] {
	return a.emailOnly(ctx, routes.SendOTP, email, "verification code sent")
}

func (a *AuthService) VerifyOTP(ctx context.Context, email, otp string) common.Result[string] {
	v := common.NewValidator().
		Field("email", email, common.Required, common.Email).
		Field("otp", otp, common.Required, common.Digits)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	return a.send(ctx, routes.VerifyOTP, map[string]string{"email": email, "otp": otp}, false, "code verified")
}

func (a *AuthService) SendDeleteOTP(ctx context.Context, email string) common.Result[string] {
	return a.emailOnly(ctx, routes.SendDeleteOTP, email, "deletion code sent")
}

// DeleteAccount removes the account and, on success, the local session.
func (a *AuthService) DeleteAccount(ctx context.Context, email, otp string) common.Result[string] {
	v := common.NewValidator().
		Field("email", email, common.Required, common.Email).
		Field("otp", otp, common.Required, common.Digits)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	res := a.send(ctx, routes.DeleteAccount, map[string]string{"email": email, "otp": otp}, false, "account deleted")
	if res.IsOk() {
		if err := a.session.Clear(ctx); err != nil {
			a.logger.Warn("client.session_clear_error", "error", err)
		}
	}
	return res
}

func (a *AuthService) ResetPassword(ctx context.Context, p PasswordReset) common.Result[string] {
	v := common.NewValidator().
		Field("email", p.Email, common.Required, common.Email).
		Field("otp", p.OTP, common.Required, common.Digits).
		Field("newPassword", p.NewPassword, common.Required, common.MinLength(8))
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	return a.send(ctx, routes.ForgotPassword, p, false, "password updated")
}

// Logout forgets the local session; the backend keeps no logout state.
func (a *AuthService) Logout(ctx context.Context) common.Result[string] {
	if err := a.session.Clear(ctx); err != nil {
		return common.Fail[string](common.KindInternal, err.Error())
	}
	return common.Ok("logged out")
}

// Refresh exchanges refreshToken for a new pair. It is the session's
// Refresher, so it must not call RefreshIfNeeded itself.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (entity.LoginData, error) {
	req, err := transport.NewJSONRequest(routes.RefreshToken, nil, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return entity.LoginData{}, err
	}
	if token, _ := a.session.AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, f := a.do(ctx, req, false)
	if f != nil {
		return entity.LoginData{}, f
	}
	login, ok := upstream.NormalizeLogin(resp.Body)
	if !ok {
		return entity.LoginData{}, errors.New("refresh response did not include a token")
	}
	return login, nil
}

func (a *AuthService) emailOnly(ctx context.Context, op transport.Op, email, fallback string) common.Result[string] {
	email = strings.TrimSpace(email)
	v := common.NewValidator().Field("email", email, common.Required, common.Email)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	return a.send(ctx, op, map[string]string{"email": email}, false, fallback)
}

func (a *AuthService) send(ctx context.Context, op transport.Op, body any, authed bool, fallback string) common.Result[string] {
	req, err := transport.NewJSONRequest(op, nil, body)
	if err != nil {
		return common.Fail[string](common.KindInternal, err.Error())
	}
	resp, f := a.do(ctx, req, authed)
	if f != nil {
		return common.FailWith[string](f)
	}
	return common.Ok(successMessage(resp.Body, fallback))
}
