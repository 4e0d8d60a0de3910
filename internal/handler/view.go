package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
)

// renderPage fills the fields the layout needs and renders the named page
func renderPage(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["CSRFField"] = csrf.TemplateField(c.Request)
	data["CSRFToken"] = csrf.Token(c.Request)
	data["CurrentUser"] = middleware.CurrentUserName(c)

	c.HTML(status, name, data)
}

// renderNotice shows a single message, used for confirmation and error outcomes
func renderNotice(c *gin.Context, status int, title, message string, failed, showLogin bool) {
	renderPage(c, status, "notice", title, gin.H{
		"Message":   message,
		"Failed":    failed,
		"ShowLogin": showLogin,
	})
}

// renderServerError is the generic response for infrastructure failures
func renderServerError(c *gin.Context) {
	renderNotice(c, http.StatusInternalServerError, "Error", "Hubo un error, intenta de nuevo más tarde", true, false)
}

// validationMessages returns the field messages of a ValidationError
func validationMessages(err error) ([]string, bool) {
	if vErr, ok := service.AsValidationError(err); ok {
		return vErr.Fields.Messages(), true
	}
	return nil, false
}

// parseID reads a positive numeric route parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// setSessionCookie stores the session token as an HTTP-only cookie
func setSessionCookie(c *gin.Context, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
