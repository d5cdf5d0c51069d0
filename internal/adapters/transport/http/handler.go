package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spellbook-app/session-gateway/internal/adapters/backend"
	"github.com/spellbook-app/session-gateway/internal/adapters/transport/http/dto"
	"github.com/spellbook-app/session-gateway/internal/adapters/transport/http/middleware"
	"github.com/spellbook-app/session-gateway/internal/app/session"
	authErrors "github.com/spellbook-app/session-gateway/internal/domain/session/errors"
	"github.com/spellbook-app/session-gateway/internal/infra/config"
	staticfiles "github.com/spellbook-app/session-gateway/static"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Handler mounts the gateway's routes: the session endpoints, the
// guarded views and the deck/card proxies.
type Handler struct {
	svc     session.Service
	backend *backend.Client
	cfg     *config.Config
	log     *zap.Logger
}

func NewHandler(svc session.Service, cli *backend.Client, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		backend: cli,
		cfg:     cfg,
		log:     logger,
	}
}

func (h *Handler) Register(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")))
	router.StaticFS("/static", http.FS(staticfiles.EmbeddedFS()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/login", h.loginPage)
	router.POST("/login", h.login)
	router.POST("/logout", h.logout)
	router.GET("/session", h.sessionState)
	router.GET("/suspended", h.suspendedPage)

	// card search stays public, matching the backend
	router.GET("/api/cards/search", h.proxyCardSearch)

	views := router.Group("/", middleware.RequireSessionHTML(h.svc))
	views.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/decks")
	})
	views.GET("/decks", h.decksPage)
	views.GET("/search", h.searchPage)

	// catch-all also serves the bare /api/decks via gin's trailing
	// slash redirect
	api := router.Group("/api", middleware.RequireSessionAPI(h.svc))
	api.Any("/decks/*rest", h.proxyDecks)
}

func (h *Handler) login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// fresh session ID on every login, never reuse the old cookie
	sid := uuid.NewString()

	user, err := h.svc.Login(c.Request.Context(), sid, body)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.setSessionCookie(c, sid)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	sid, err := c.Cookie(middleware.SessionCookie)
	if err == nil && sid != "" {
		if err := h.svc.Logout(c.Request.Context(), sid); err != nil {
			h.handleError(c, err)
			return
		}
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) sessionState(c *gin.Context) {
	state := dto.SessionStateDTO{}

	sid, err := c.Cookie(middleware.SessionCookie)
	if err == nil && sid != "" && h.svc.IsAuthenticated(c.Request.Context(), sid) {
		if user, err := h.svc.CurrentUser(c.Request.Context(), sid); err == nil {
			state.Authenticated = true
			state.User = user
		}
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) loginPage(c *gin.Context) {
	if sid, err := c.Cookie(middleware.SessionCookie); err == nil && sid != "" {
		if h.svc.IsAuthenticated(c.Request.Context(), sid) {
			c.Redirect(http.StatusSeeOther, "/decks")
			return
		}
	}
	c.HTML(http.StatusOK, "login.tmpl", nil)
}

func (h *Handler) suspendedPage(c *gin.Context) {
	c.HTML(http.StatusOK, "suspended.tmpl", nil)
}

type deckView struct {
	ID          string
	Name        string
	Description string
	CardCount   int
}

func (h *Handler) decksPage(c *gin.Context) {
	sid := c.GetString(middleware.ContextSID)

	access, err := h.svc.AccessToken(c.Request.Context(), sid)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp, err := h.backend.Forward(c.Request.Context(),
		http.MethodGet, "/api/v1/collections", "", nil, "", access)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if resp.Status != http.StatusOK {
		c.HTML(http.StatusBadGateway, "decks.tmpl", gin.H{
			"Error": "deck list temporarily unavailable",
		})
		return
	}

	var raw []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Cards       []struct {
			Quantity int `json:"quantity"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		h.handleError(c, authErrors.WrapInternal(err, "decode deck list"))
		return
	}

	decks := make([]deckView, 0, len(raw))
	for _, d := range raw {
		count := 0
		for _, card := range d.Cards {
			count += card.Quantity
		}
		decks = append(decks, deckView{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			CardCount:   count,
		})
	}

	user, err := h.svc.CurrentUser(c.Request.Context(), sid)
	if err != nil {
		// the deck list is already in hand, render it without the chip
		h.log.Warn("load current user", zap.Error(err))
	}
	c.HTML(http.StatusOK, "decks.tmpl", gin.H{
		"Decks": decks,
		"User":  user,
	})
}

func (h *Handler) searchPage(c *gin.Context) {
	sid := c.GetString(middleware.ContextSID)
	user, err := h.svc.CurrentUser(c.Request.Context(), sid)
	if err != nil {
		h.log.Warn("load current user", zap.Error(err))
	}
	c.HTML(http.StatusOK, "search.tmpl", gin.H{
		"User":  user,
		"Query": c.Query("q"),
	})
}

// proxyDecks rewrites /api/decks… onto the backend's collections API
// and relays the response untouched.
func (h *Handler) proxyDecks(c *gin.Context) {
	sid := c.GetString(middleware.ContextSID)

	access, err := h.svc.AccessToken(c.Request.Context(), sid)
	if err != nil {
		h.handleError(c, err)
		return
	}

	rest := c.Param("rest")
	if rest == "/" {
		rest = ""
	}
	path := "/api/v1/collections" + rest
	resp, err := h.backend.Forward(c.Request.Context(),
		c.Request.Method, path, c.Request.URL.RawQuery,
		c.Request.Body, c.GetHeader("Content-Type"), access)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.relay(c, resp)
}

func (h *Handler) proxyCardSearch(c *gin.Context) {
	resp, err := h.backend.Forward(c.Request.Context(),
		http.MethodGet, "/api/v1/cards/search", c.Request.URL.RawQuery, nil, "", "")
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.relay(c, resp)
}

func (h *Handler) relay(c *gin.Context, resp *backend.ProxyResponse) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.Status, contentType, resp.Body)
}

func (h *Handler) setSessionCookie(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.SessionCookie,
		sid,
		int(h.cfg.SessionTTL.Seconds()),
		"/",
		h.cfg.CookieDomain,
		h.cfg.CookieSecure,
		true, // httpOnly
	)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case authErrors.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case authErrors.IsInvalidCredentials(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case authErrors.IsAccountSuspended(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended", "suspended": true})
	case authErrors.IsNoSession(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	case authErrors.IsNetwork(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unreachable", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
