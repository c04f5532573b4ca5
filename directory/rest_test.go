package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	portalguard "github.com/eduportal/portalguard"
)

func newTestClient(t *testing.T, handler http.Handler) *RESTClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRESTClient(Config{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		ServiceToken: "service-token",
	})
	if err != nil {
		t.Fatalf("NewRESTClient: %v", err)
	}
	return client
}

func TestUserByIDForwardsCredential(t *testing.T) {
	var gotToken, gotPath string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("accessToken")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           42,
			"nome":         "Maria Souza",
			"email":        "maria@exemplo.edu.br",
			"tipo_usuario": "professor",
		})
	}))

	user, err := client.UserByID(context.Background(), 42, "user-jwt")
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if gotPath != "/users/42" {
		t.Fatalf("path = %q, want /users/42", gotPath)
	}
	if gotToken != "user-jwt" {
		t.Fatalf("accessToken header = %q, want user-jwt", gotToken)
	}
	if user.ID != 42 || user.Tipo != portalguard.RoleProfessor {
		t.Fatalf("unexpected record: %+v", user)
	}
}

func TestUserByIDNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.UserByID(context.Background(), 7, "user-jwt")
	if !errors.Is(err, portalguard.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUserByIDBackendError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.UserByID(context.Background(), 7, "user-jwt")
	if !errors.Is(err, portalguard.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestUserByIDMalformedBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := client.UserByID(context.Background(), 7, "user-jwt")
	if !errors.Is(err, portalguard.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestUserByIDUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewRESTClient(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewRESTClient: %v", err)
	}

	_, err = client.UserByID(context.Background(), 7, "user-jwt")
	if !errors.Is(err, portalguard.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestUserByEmailUsesServiceToken(t *testing.T) {
	var gotToken, gotEmail string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("accessToken")
		gotEmail = r.URL.Query().Get("email")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           5,
			"nome":         "João Silva",
			"email":        "joao.silva@aluno.exemplo.edu.br",
			"tipo_usuario": "aluno",
		})
	}))

	user, err := client.UserByEmail(context.Background(), "joao.silva@aluno.exemplo.edu.br")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if gotToken != "service-token" {
		t.Fatalf("accessToken header = %q, want service-token", gotToken)
	}
	if gotEmail != "joao.silva@aluno.exemplo.edu.br" {
		t.Fatalf("email query = %q", gotEmail)
	}
	if user.Tipo != portalguard.RoleAluno {
		t.Fatalf("role = %q, want aluno", user.Tipo)
	}
}

func TestUpdatePassword(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody struct {
		Password string `json:"senha"`
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.UpdatePassword(context.Background(), 42, "nova-senha"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/users/42/password" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody.Password != "nova-senha" {
		t.Fatalf("senha = %q", gotBody.Password)
	}
}

func TestUpdatePasswordNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	err := client.UpdatePassword(context.Background(), 42, "nova-senha")
	if !errors.Is(err, portalguard.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestNewRESTClientRequiresBaseURL(t *testing.T) {
	if _, err := NewRESTClient(Config{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
