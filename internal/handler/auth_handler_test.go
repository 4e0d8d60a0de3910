package handler_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
)

// ==================== REGISTRATION FLOW ====================

func TestAuthHandler_RegisterConfirmLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/auth/registro", url.Values{
		"nombre":           {"Carla"},
		"email":            {"carla@example.com"},
		"password":         {"secret1"},
		"repetir_password": {"secret1"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Cuenta Creada Correctamente")
	assert.Equal(t, 1, env.mailer.count())

	// Unconfirmed accounts cannot sign in
	w = env.postForm("/auth/login", url.Values{"email": {"carla@example.com"}, "password": {"secret1"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Tu cuenta no ha sido confirmada")

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "carla@example.com").First(&user).Error)
	require.NotNil(t, user.Token)

	w = env.get("/auth/confirmar/"+*user.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "La cuenta se confirmó correctamente")

	// The token is single use
	w = env.get("/auth/confirmar/"+*user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.postForm("/auth/login", url.Values{"email": {"carla@example.com"}, "password": {"secret1"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/mis-propiedades", w.Header().Get("Location"))

	cookie := findCookie(w, middleware.SessionCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	w = env.get("/mis-propiedades", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_RegisterRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "every field invalid",
			form:       url.Values{"email": {"nope"}, "password": {"123"}, "repetir_password": {"456"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"El nombre es obligatorio", "El email no es válido"},
		},
		{
			name: "duplicate email",
			form: url.Values{
				"nombre":           {"Otra Alice"},
				"email":            {"alice@example.com"},
				"password":         {"secret1"},
				"repetir_password": {"secret1"},
			},
			wantStatus: http.StatusConflict,
			wantBody:   []string{"El usuario ya está registrado"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postForm("/auth/registro", tt.form, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, w.Body.String(), want)
			}
		})
	}
	assert.Equal(t, 0, env.mailer.count())
}

// ==================== SIGN IN ====================

func TestAuthHandler_LoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		form     url.Values
		status   int
		wantBody string
	}{
		{"missing password", url.Values{"email": {"alice@example.com"}}, http.StatusBadRequest, "El password es obligatorio"},
		{"unknown email", url.Values{"email": {"nobody@example.com"}, "password": {"secret1"}}, http.StatusUnauthorized, "El usuario no existe"},
		{"wrong password", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}}, http.StatusUnauthorized, "El password es incorrecto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postForm("/auth/login", tt.form, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Nil(t, findCookie(w, middleware.SessionCookie))
		})
	}
}

func TestAuthHandler_LoginThrottled(t *testing.T) {
	env := newTestEnv(t)
	bad := url.Values{"email": {"alice@example.com"}, "password": {"wrong"}}

	for i := 0; i < int(env.cfg.LoginMaxAttempts); i++ {
		w := env.postForm("/auth/login", bad, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Even the right password is refused while the window is open
	w := env.postForm("/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Demasiados intentos")

	// Another account is unaffected
	w = env.postForm("/auth/login", url.Values{"email": {"bob@example.com"}, "password": {"secret1"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t, env.alice)

	w := env.get("/mis-propiedades", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postForm("/auth/cerrar-sesion", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))
	cleared := findCookie(w, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	// A copy of the old cookie no longer works
	w = env.get("/mis-propiedades", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))
}

// ==================== PASSWORD RESET ====================

func TestAuthHandler_PasswordReset(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/auth/olvide-password", url.Values{"email": {"nobody@example.com"}}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "El email no pertenece a ningún usuario")

	w = env.postForm("/auth/olvide-password", url.Values{"email": {"alice@example.com"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.mailer.count())

	var user models.User
	require.NoError(t, env.db.First(&user, env.alice.ID).Error)
	require.NotNil(t, user.Token)
	resetPath := "/auth/olvide-password/" + *user.Token

	w = env.get("/auth/olvide-password/not-a-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.get(resetPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="password"`)

	w = env.postForm(resetPath, url.Values{"password": {"123"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.postForm(resetPath, url.Values{"password": {"nuevo123"}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "El password se guardó correctamente")

	w = env.postForm("/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"nuevo123"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)

	// The link is spent
	w = env.get(resetPath, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
