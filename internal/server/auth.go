package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/middleware"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

// call forwards req once. On a transport failure it writes the error
// envelope itself and returns nil.
func (s *Server) call(w http.ResponseWriter, r *http.Request, req *transport.Request) *transport.Response {
	resp, err := s.upstream.Call(r.Context(), req)
	if err != nil {
		s.logger.Error("gateway.upstream_error",
			"req_id", common.RequestIDFromContext(r.Context()),
			"op", req.Op,
			"error", err,
		)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "upstream timed out, please try again")
		case errors.Is(err, context.Canceled):
			writeError(w, 499, "request cancelled")
		default:
			writeError(w, http.StatusBadGateway, "upstream unavailable, please try again")
		}
		return nil
	}
	return resp
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request, op transport.Op, params map[string]string, body any) {
	req, err := transport.NewJSONRequest(op, params, body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not encode request")
		return
	}
	if resp := s.call(w, r, req); resp != nil {
		relay(w, resp)
	}
}

func credentials(doc map[string]any) (string, string, bool) {
	email, password := str(doc, "email"), str(doc, "password")
	return email, password, email != "" && password != ""
}

// handleAuth forwards a login and relays the raw upstream answer.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	email, password, ok := credentials(doc)
	if !ok {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.forward(w, r, routes.Login, nil, map[string]string{"email": email, "password": password})
}

// handleLogin forwards a login and answers {success, token, refreshToken, data}.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	email, password, ok := credentials(doc)
	if !ok {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	req, _ := transport.NewJSONRequest(routes.Login, nil, map[string]string{"email": email, "password": password})
	resp := s.call(w, r, req)
	if resp == nil {
		return
	}
	if !resp.OK() {
		writeJSON(w, resp.StatusCode, map[string]any{
			"success": false,
			"error":   common.ExtractMessage(resp.Body, resp.StatusCode),
		})
		return
	}
	login, ok := upstream.NormalizeLogin(resp.Body)
	if !ok {
		writeError(w, http.StatusBadGateway, "login response did not include a token")
		return
	}
	out := map[string]any{"success": true, "token": login.Token}
	if login.RefreshToken != "" {
		out["refreshToken"] = login.RefreshToken
	}
	if len(login.User) > 0 {
		out["data"] = login.User
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	v := common.NewValidator().
		Field("name", str(doc, "name"), common.Required).
		Field("email", str(doc, "email"), common.Required, common.Email).
		Field("password", str(doc, "password"), common.Required).
		Field("otp", str(doc, "otp"), common.Required, common.Digits)
	if v.HasErrors() {
		writeValidation(w, v)
		return
	}
	s.forward(w, r, routes.Register, nil, doc)
}

func (s *Server) emailOnly(w http.ResponseWriter, r *http.Request, op transport.Op) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	email := str(doc, "email")
	v := common.NewValidator().Field("email", email, common.Required, common.Email)
	if v.HasErrors() {
		writeValidation(w, v)
		return
	}
	s.forward(w, r, op, nil, map[string]string{"email": email})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	s.emailOnly(w, r, routes.SendOTP)
}

func (s *Server) handleSendDeleteOTP(w http.ResponseWriter, r *http.Request) {
	s.emailOnly(w, r, routes.SendDeleteOTP)
}

func (s *Server) emailAndOTP(w http.ResponseWriter, r *http.Request, op transport.Op) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	email, otp := str(doc, "email"), str(doc, "otp")
	v := common.NewValidator().
		Field("email", email, common.Required, common.Email).
		Field("otp", otp, common.Required, common.Digits)
	if v.HasErrors() {
		writeValidation(w, v)
		return
	}
	s.forward(w, r, op, nil, map[string]string{"email": email, "otp": otp})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	s.emailAndOTP(w, r, routes.VerifyOTP)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.emailAndOTP(w, r, routes.DeleteAccount)
}

// handleForgotPassword forwards the reset payload as sent.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	v := common.NewValidator().Field("email", str(doc, "email"), common.Required, common.Email)
	if v.HasErrors() {
		writeValidation(w, v)
		return
	}
	s.forward(w, r, routes.ForgotPassword, nil, doc)
}

// handleRefreshToken answers {token, refreshToken}.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}
	doc, err := decodeObject(w, r, maxJSONBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	refresh := str(doc, "refreshToken")
	if refresh == "" {
		writeFieldsError(w, "refreshToken is required", []string{"refreshToken"})
		return
	}
	req, _ := transport.NewJSONRequest(routes.RefreshToken, nil, map[string]string{"refreshToken": refresh})
	resp := s.call(w, r, req)
	if resp == nil {
		return
	}
	if !resp.OK() {
		relay(w, resp)
		return
	}
	login, ok := upstream.NormalizeLogin(resp.Body)
	if !ok {
		writeError(w, http.StatusBadGateway, "refresh response did not include a token")
		return
	}
	if login.RefreshToken == "" {
		login.RefreshToken = refresh
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": login.Token, "refreshToken": login.RefreshToken})
}
