package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicHandler_Home(t *testing.T) {
	env := newTestEnv(t)
	env.createListing(t, env.alice, "Casa publicada", true)
	env.createListing(t, env.alice, "Casa borrador", false)

	w := env.get("/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Casa publicada")
	assert.NotContains(t, body, "Casa borrador")
	assert.Contains(t, body, "/js/mapaInicio.js")
	assert.Contains(t, body, "Iniciar Sesión")
	assert.Contains(t, body, `href="/categorias/1"`)
	assert.Contains(t, body, `href="/categorias/2"`)
}

func TestPublicHandler_Category(t *testing.T) {
	env := newTestEnv(t)
	env.createListing(t, env.alice, "Casa publicada", true)

	w := env.get("/categorias/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Casas en Venta")
	assert.Contains(t, w.Body.String(), "Casa publicada")

	for _, path := range []string{"/categorias/99", "/categorias/abc"} {
		w = env.get(path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/404", w.Header().Get("Location"), path)
	}
}

func TestPublicHandler_Search(t *testing.T) {
	env := newTestEnv(t)
	env.createListing(t, env.alice, "Casa en la playa", true)
	env.createListing(t, env.alice, "Casa en la montaña", true)

	w := env.postForm("/buscador", url.Values{"termino": {"PLAYA"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Casa en la playa")
	assert.NotContains(t, w.Body.String(), "Casa en la montaña")

	req := httptest.NewRequest(http.MethodPost, "/buscador", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "http://example.com/categorias/1")
	w = env.do(req, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/categorias/1", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodPost, "/buscador", nil)
	req.Header.Set("Referer", "http://evil.example.org/")
	w = env.do(req, nil)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestPublicHandler_ShowListing(t *testing.T) {
	env := newTestEnv(t)
	published := env.createListing(t, env.alice, "Casa publicada", true)
	draft := env.createListing(t, env.alice, "Casa borrador", false)

	t.Run("anonymous", func(t *testing.T) {
		w := env.get(fmt.Sprintf("/propiedad/%d", published.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "debes crear una cuenta")
	})

	t.Run("seller", func(t *testing.T) {
		w := env.get(fmt.Sprintf("/propiedad/%d", published.ID), env.session(t, env.alice))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Eres el vendedor")
	})

	t.Run("buyer", func(t *testing.T) {
		w := env.get(fmt.Sprintf("/propiedad/%d", published.ID), env.session(t, env.bob))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="mensaje"`)
	})

	t.Run("unpublished is hidden even from the seller", func(t *testing.T) {
		w := env.get(fmt.Sprintf("/propiedad/%d", draft.ID), env.session(t, env.alice))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/404", w.Header().Get("Location"))
	})
}

func TestPublicHandler_SendInquiry(t *testing.T) {
	env := newTestEnv(t)
	published := env.createListing(t, env.alice, "Casa publicada", true)
	draft := env.createListing(t, env.alice, "Casa borrador", false)
	path := fmt.Sprintf("/propiedad/%d", published.ID)

	w := env.postForm(path, url.Values{"mensaje": {""}}, env.session(t, env.bob))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "es obligatorio")

	w = env.postForm(path, url.Values{"mensaje": {"Hola"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	w = env.postForm(fmt.Sprintf("/propiedad/%d", draft.ID), url.Values{"mensaje": {"Hola"}}, env.session(t, env.bob))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/404", w.Header().Get("Location"))

	var count int64
	require.NoError(t, env.db.Table("messages").Count(&count).Error)
	assert.Zero(t, count)
}

func TestPublicHandler_SendInquiryRedirects(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, env.alice, "Casa publicada", true)
	path := fmt.Sprintf("/propiedad/%d", listing.ID)
	bob := env.session(t, env.bob)

	w := env.postForm(path, url.Values{"mensaje": {"Me interesa"}}, bob)
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Equal(t, path+"?enviado=1", location)

	// Reloading the confirmation page is a plain GET
	for i := 0; i < 2; i++ {
		w = env.get(location, bob)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Mensaje enviado correctamente")
	}

	var count int64
	require.NoError(t, env.db.Table("messages").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = env.get(path, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Mensaje enviado correctamente")
}

func TestPublicHandler_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No Encontrada")

	w = env.get("/no/existe", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/404", w.Header().Get("Location"))
}

// ==================== API ====================

func TestAPIHandler_Listings(t *testing.T) {
	env := newTestEnv(t)
	env.createListing(t, env.alice, "Casa publicada", true)
	env.createListing(t, env.alice, "Casa borrador", false)

	w := env.get("/api/propiedades", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var feed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed, 1)

	item := feed[0]
	assert.Equal(t, "Casa publicada", item["titulo"])
	assert.Equal(t, "Casa publicada.jpg", item["imagen"])
	assert.Equal(t, float64(1), item["categoriaId"])
	assert.Equal(t, "Casa", item["categoria"].(map[string]interface{})["nombre"])
	assert.NotNil(t, item["precio"])
	assert.NotContains(t, item, "usuarioId")
	assert.NotContains(t, item, "descripcion")
}

func TestAPIHandler_Image(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/uploads/missing.jpg", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIHandler_Health(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
