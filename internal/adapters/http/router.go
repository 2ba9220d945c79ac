// Package http is the local inspector: a small gin API over the joined
// session for debugging and scripting.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/orch"
	"github.com/dkeye/Seminar/internal/app/whiteboard"
	"github.com/dkeye/Seminar/internal/config"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const seenKey = "chat_seen"

// Session is what the inspector needs from the orchestrator.
type Session interface {
	Status() orch.Status
	Roster() []domain.Participant
	Chat() []domain.ChatMessage
	Reactions() []domain.Reaction
	Whiteboard() (domain.WhiteboardSnapshot, bool)
	ExportWhiteboard(f whiteboard.Format) ([]byte, error)
	SendChat(body string, to domain.ParticipantID) (*app.Call, error)
	RaiseHand(raised bool) (*app.Call, error)
	SendReaction(kind domain.ReactionKind) (*app.Call, error)

	EnableMedia(ctx context.Context, settings domain.MediaSettings) error
	DisableMedia() error
	SetMuted(muted bool) (*app.Call, error)
	SetVideo(on bool) (*app.Call, error)
	SwapDevice(ctx context.Context, kind domain.TrackKind, device domain.DeviceID) error
	StartScreenShare(ctx context.Context) error
	StopScreenShare()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, sess Session, metrics http.Handler) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.InspectSecret))
	r.Use(sessions.Sessions("SeminarInspector", store))
	r.Use(ClientTokenMiddleware())

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	h := handlers{sess: sess}
	api := r.Group("/api")
	api.GET("/session", h.status)
	api.GET("/roster", h.roster)
	api.GET("/chat", h.chat)
	api.GET("/reactions", h.reactions)
	api.GET("/whiteboard", h.whiteboard)
	api.GET("/whiteboard/export", h.export)
	api.POST("/chat", h.sendChat)
	api.POST("/hand", h.hand)
	api.POST("/reaction", h.reaction)

	media := api.Group("/media")
	media.POST("", h.enableMedia)
	media.DELETE("", h.disableMedia)
	media.POST("/mute", h.mute)
	media.POST("/video", h.video)
	media.POST("/device", h.swapDevice)
	api.POST("/screen-share", h.startShare)
	api.DELETE("/screen-share", h.stopShare)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

type handlers struct {
	sess Session
}

func (h handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.sess.Status())
}

func (h handlers) roster(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.sess.Roster()})
}

// chat returns the chat stream. With ?unread=1 it returns only what this
// client has not fetched before, tracked in its cookie session.
func (h handlers) chat(c *gin.Context) {
	msgs := h.sess.Chat()
	if c.Query("unread") == "" {
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
		return
	}
	s := sessions.Default(c)
	seen, _ := s.Get(seenKey).(int)
	if seen > len(msgs) {
		seen = 0
	}
	s.Set(seenKey, len(msgs))
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("save inspector session")
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs[seen:]})
}

func (h handlers) reactions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reactions": h.sess.Reactions()})
}

func (h handlers) whiteboard(c *gin.Context) {
	snap, ok := h.sess.Whiteboard()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not joined"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h handlers) export(c *gin.Context) {
	f, err := whiteboard.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := h.sess.ExportWhiteboard(f)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, f.ContentType(), img)
}

type chatRequest struct {
	Body        string               `json:"body"`
	RecipientID domain.ParticipantID `json:"recipientId"`
}

func (h handlers) sendChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted(c)(h.sess.SendChat(req.Body, req.RecipientID))
}

type handRequest struct {
	Raised bool `json:"raised"`
}

func (h handlers) hand(c *gin.Context) {
	var req handRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted(c)(h.sess.RaiseHand(req.Raised))
}

type reactionRequest struct {
	Kind domain.ReactionKind `json:"kind"`
}

func (h handlers) reaction(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted(c)(h.sess.SendReaction(req.Kind))
}

func (h handlers) enableMedia(c *gin.Context) {
	var req domain.MediaSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	done(c, h.sess.EnableMedia(c.Request.Context(), req))
}

func (h handlers) disableMedia(c *gin.Context) {
	done(c, h.sess.DisableMedia())
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (h handlers) mute(c *gin.Context) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted(c)(h.sess.SetMuted(req.Muted))
}

type toggleRequest struct {
	On bool `json:"on"`
}

func (h handlers) video(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted(c)(h.sess.SetVideo(req.On))
}

type deviceRequest struct {
	Kind     domain.TrackKind `json:"kind" binding:"required,oneof=audio video"`
	DeviceID domain.DeviceID  `json:"deviceId" binding:"required"`
}

func (h handlers) swapDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	done(c, h.sess.SwapDevice(c.Request.Context(), req.Kind, req.DeviceID))
}

func (h handlers) startShare(c *gin.Context) {
	done(c, h.sess.StartScreenShare(c.Request.Context()))
}

func (h handlers) stopShare(c *gin.Context) {
	h.sess.StopScreenShare()
	c.Status(http.StatusNoContent)
}

func done(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// accepted answers 202 with the correlation id once a command is queued.
func accepted(c *gin.Context) func(*app.Call, error) {
	return func(call *app.Call, err error) {
		if err != nil {
			fail(c, err)
			return
		}
		body := gin.H{"status": "queued"}
		if call != nil {
			body["correlationId"] = call.ID
		}
		c.JSON(http.StatusAccepted, body)
	}
}

func fail(c *gin.Context, err error) {
	code := http.StatusBadGateway
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument:
		code = http.StatusBadRequest
	case domain.KindPermissionDenied:
		code = http.StatusForbidden
	case domain.KindChannelDisconnected:
		code = http.StatusServiceUnavailable
	case domain.KindStaleParticipantReference:
		code = http.StatusNotFound
	case domain.KindDeviceUnavailable:
		code = http.StatusConflict
	}
	var de *domain.Error
	kind := "unknown"
	if errors.As(err, &de) {
		kind = de.Kind.String()
	}
	c.JSON(code, gin.H{"error": err.Error(), "kind": kind})
}
