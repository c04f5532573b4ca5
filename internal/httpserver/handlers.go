package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	portalguard "github.com/eduportal/portalguard"
)

// The reset endpoints answer identically whether or not the account or
// token exists. Both messages are fixed strings so no code path can leak
// a distinguishing byte.
const (
	resetRequestedMessage = "Se o e-mail estiver cadastrado, você receberá as instruções de redefinição de senha."
	resetInvalidMessage   = "Token de redefinição inválido ou expirado."
)

type resetRequestPayload struct {
	Email string `json:"email"`
}

type resetConfirmPayload struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"senha"`
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var payload resetRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "e-mail é obrigatório"})
		return
	}

	ctx := portalguard.WithClientIP(r.Context(), requestIP(r))
	err := s.engine.RequestPasswordReset(ctx, payload.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": resetRequestedMessage})
	case errors.Is(err, portalguard.ErrResetRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "muitas solicitações, tente novamente mais tarde"})
	default:
		s.logger.Error().Err(err).Msg("password reset request failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "serviço temporariamente indisponível"})
	}
}

func (s *Server) handleResetValidate(w http.ResponseWriter, r *http.Request) {
	var payload resetConfirmPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	valid := s.engine.ValidateResetToken(r.Context(), payload.Email, payload.Token)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var payload resetConfirmPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Email == "" || payload.Token == "" || payload.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "e-mail, token e senha são obrigatórios"})
		return
	}

	ctx := portalguard.WithClientIP(r.Context(), requestIP(r))
	err := s.engine.ConfirmPasswordReset(ctx, payload.Email, payload.Token, payload.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "senha redefinida com sucesso"})
	case errors.Is(err, portalguard.ErrResetTokenInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": resetInvalidMessage})
	default:
		s.logger.Error().Err(err).Msg("password reset confirm failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "serviço temporariamente indisponível"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = io.WriteString(w, unauthorizedPage)
}

const unauthorizedPage = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Acesso Negado</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 60px;">
  <h1>Acesso Negado</h1>
  <p>Você não tem permissão para acessar esta página.</p>
  <p><a href="/login">Voltar para o login</a></p>
</body>
</html>
`

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "corpo da requisição inválido"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
