package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/antinea2359/app-tarot/internal/adapters/web"
	"github.com/antinea2359/app-tarot/internal/app"
	"github.com/antinea2359/app-tarot/internal/domain"
)

const shareTitle = "Mon Tirage Oraculum"

type Handler struct {
	sessions   *app.Registry
	sessionTTL time.Duration
	renderer   *web.Renderer
	publicURL  string
	logger     *slog.Logger
}

func NewHandler(sessions *app.Registry, sessionTTL time.Duration, renderer *web.Renderer, publicURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		renderer:   renderer,
		publicURL:  strings.TrimRight(publicURL, "/"),
		logger:     logger,
	}
}

// Register mounts the routes. Everything but /healthz and the static shell
// runs behind the session middleware.
func (h *Handler) Register(e *echo.Echo) {
	session := SessionMiddleware(h.sessions, h.sessionTTL)

	e.GET("/healthz", h.Healthz)
	e.GET("/app.js", h.Asset("app.js"))
	e.GET("/sw.js", h.Asset("sw.js"))
	e.GET("/manifest.json", h.Asset("manifest.json"))

	e.GET("/", h.Page, session)
	e.GET("/card", h.Card, session)

	v1 := e.Group("/v1", session)
	v1.GET("/state", h.State)
	v1.POST("/draw", h.Draw)
	v1.POST("/edit", h.Edit)
	v1.POST("/retry-image", h.RetryImage)
	v1.PUT("/edit-prompt", h.SetEditPrompt)
	v1.GET("/image", h.Image)
	v1.GET("/share", h.Share)
	v1.GET("/ws", h.Watch)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Asset(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ct, ok := web.Asset(name)
		if !ok {
			return c.NoContent(http.StatusNotFound)
		}
		if name == "sw.js" {
			c.Response().Header().Set("Service-Worker-Allowed", "/")
		}
		return c.Blob(http.StatusOK, ct, raw)
	}
}

func (h *Handler) Page(c echo.Context) error {
	return h.html(c, h.renderer.Page)
}

func (h *Handler) Card(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return h.html(c, h.renderer.Card)
}

func (h *Handler) html(c echo.Context, render func(io.Writer, domain.View) error) error {
	var buf bytes.Buffer
	if err := render(&buf, sessionFrom(c).View()); err != nil {
		return mapError(c, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionFrom(c).View())
}

func (h *Handler) Draw(c echo.Context) error {
	s := sessionFrom(c)
	if _, err := s.RequestDraw(); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusAccepted, s.View())
}

func (h *Handler) RetryImage(c echo.Context) error {
	s := sessionFrom(c)
	if _, err := s.RetryImage(); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusAccepted, s.View())
}

func (h *Handler) Edit(c echo.Context) error {
	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	s := sessionFrom(c)
	if _, err := s.RequestEdit(req.Prompt); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusAccepted, s.View())
}

func (h *Handler) SetEditPrompt(c echo.Context) error {
	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	return c.JSON(http.StatusOK, sessionFrom(c).SetEditPrompt(req.Prompt))
}

func (h *Handler) Image(c echo.Context) error {
	img, ok := sessionFrom(c).View().Artifact()
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrNoImage.Error()})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, img.ContentType(), img.Data)
}

func (h *Handler) Share(c echo.Context) error {
	v := sessionFrom(c).View()
	if v.Reading == nil || v.Image == "" {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no card to share"})
	}

	text := fmt.Sprintf("🔮 Oraculum Tarot\n\nCarte: %s\n\n\"%s\"\n\n#Oraculum #Tarot #IA", v.Reading.Name, v.Reading.SpiritualMessage)
	link := h.publicURL
	if link == "" {
		link = c.Scheme() + "://" + c.Request().Host
	}
	link += "/"

	return c.JSON(http.StatusOK, ShareResponse{
		Title:       shareTitle,
		Text:        text,
		URL:         link,
		FallbackURL: "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(link) + "&quote=" + url.QueryEscape(text),
	})
}

func mapError(c echo.Context, err error) error {
	requestID, _ := c.Get("request_id").(string)

	switch {
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNoImage), errors.Is(err, domain.ErrNoReading):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrEmptyPrompt):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
