package http

import (
	"context"
	stderrors "errors"
	"net/http"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/internal/core/services"
	"manualcall/pkg/errors"
	"manualcall/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SpeechTestText is spoken by the speech test action per voice language.
var SpeechTestText = map[domain.Language]string{
	domain.LanguageJapanese: "これは音声テストです。",
	domain.LanguageEnglish:  "This is a speech test.",
}

// SpeechConfig is the voice used by the speech test action
type SpeechConfig struct {
	VoiceLang domain.Language
	VoiceName string
}

// RouteGuards are optional middlewares applied to groups of routes.
type RouteGuards struct {
	// Operator guards every state-changing route.
	Operator gin.HandlerFunc
	// CaptionLimit guards caption sends.
	CaptionLimit gin.HandlerFunc
}

// CallHandler exposes the call actions of the current session
type CallHandler struct {
	sessions *services.SessionManager
	speech   ports.SpeechSynthesizer
	voice    SpeechConfig
	logger   *zap.SugaredLogger
}

// NewCallHandler creates a new call handler
func NewCallHandler(
	sessions *services.SessionManager,
	speech ports.SpeechSynthesizer,
	voice SpeechConfig,
	logger *zap.SugaredLogger,
) *CallHandler {
	return &CallHandler{
		sessions: sessions,
		speech:   speech,
		voice:    voice,
		logger:   logger,
	}
}

// SetupRoutes registers the call routes on api. Reads are open to any
// authenticated client; actions go through guards.Operator
func (h *CallHandler) SetupRoutes(api *gin.RouterGroup, guards RouteGuards) {
	write := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if guards.Operator == nil {
			return handlers
		}
		return append([]gin.HandlerFunc{guards.Operator}, handlers...)
	}
	captions := []gin.HandlerFunc{h.SendCaption}
	if guards.CaptionLimit != nil {
		captions = append([]gin.HandlerFunc{guards.CaptionLimit}, captions...)
	}

	api.GET("/session", h.GetSession)
	api.GET("/captions", h.ListCaptions)

	api.POST("/session/reset", write(h.ResetSession)...)
	api.POST("/mic/start", write(h.StartMic)...)
	api.POST("/mic/stop", write(h.StopMic)...)
	api.POST("/mic/mute", write(h.ToggleMute)...)
	api.POST("/offer", write(h.CreateOffer)...)
	api.POST("/answer", write(h.AcceptOffer)...)
	api.POST("/remote", write(h.SetRemoteDescription)...)
	api.POST("/captions", write(captions...)...)
	api.POST("/speech/test", write(h.TestSpeech)...)
}

func (h *CallHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Current().Snapshot())
}

// ResetSession closes the current call and starts a fresh session
func (h *CallHandler) ResetSession(c *gin.Context) {
	s, err := h.sessions.Reset()
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *CallHandler) StartMic(c *gin.Context) {
	s := h.sessions.Current()
	if err := s.StartMic(c.Request.Context()); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"mic_on": true, "session_id": s.ID()})
}

func (h *CallHandler) StopMic(c *gin.Context) {
	if err := h.sessions.Current().StopMic(); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"mic_on": false})
}

func (h *CallHandler) ToggleMute(c *gin.Context) {
	muted, err := h.sessions.Current().ToggleMute()
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}

func (h *CallHandler) CreateOffer(c *gin.Context) {
	desc, err := h.sessions.Current().CreateOffer(c.Request.Context())
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": desc})
}

// AcceptOffer takes a pasted offer and returns the answer to copy back
func (h *CallHandler) AcceptOffer(c *gin.Context) {
	var req struct {
		Offer string `json:"offer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("request body must be JSON with an offer field"))
		return
	}
	if err := validation.ValidateDescription(req.Offer); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()).WithContext("field", "offer"))
		return
	}

	desc, err := h.sessions.Current().AcceptOffer(c.Request.Context(), req.Offer)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": desc})
}

// SetRemoteDescription applies the pasted answer (or offer) from the other peer
func (h *CallHandler) SetRemoteDescription(c *gin.Context) {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("request body must be JSON with a description field"))
		return
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()).WithContext("field", "description"))
		return
	}

	if err := h.sessions.Current().SetRemoteDescription(c.Request.Context(), req.Description); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// SendCaption answers 202 when the caption was queued for a channel that is not open yet
func (h *CallHandler) SendCaption(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("request body must be JSON with a text field"))
		return
	}
	if err := validation.ValidateCaptionText(req.Text); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()).WithContext("field", "text"))
		return
	}

	translated, result, err := h.sessions.Current().SendCaption(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	status := http.StatusOK
	if result == domain.SendQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"text": translated, "result": result})
}

func (h *CallHandler) ListCaptions(c *gin.Context) {
	entries := h.sessions.Current().CaptionLog().Entries()
	c.JSON(http.StatusOK, gin.H{"captions": entries, "count": len(entries)})
}

// TestSpeech speaks a sample sentence with the configured voice, or the given
// text when provided.
func (h *CallHandler) TestSpeech(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(errors.NewInvalidInputError("request body must be JSON"))
			return
		}
	}
	if err := validation.ValidateCaptionText(req.Text); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()).WithContext("field", "text"))
		return
	}
	if h.speech == nil {
		_ = c.Error(errors.NewServiceUnavailableError("speech synthesis is not configured"))
		return
	}

	text := req.Text
	if text == "" {
		lang := h.voice.VoiceLang
		if !lang.IsConcrete() {
			lang = domain.LanguageJapanese
		}
		text = SpeechTestText[lang]
	}

	voice := services.VoiceFor(h.voice.VoiceLang, h.voice.VoiceName, text)
	if err := h.speech.Speak(c.Request.Context(), text, voice); err != nil {
		h.logger.Warnw("speech test failed", "voice", voice.Lang, "error", err)
		_ = c.Error(errors.WrapError(err, errors.ErrCodeServiceUnavailable, "speech synthesis failed", http.StatusServiceUnavailable))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"text": text, "voice": voice.Lang})
}

// toAppError maps core errors onto API errors.
func toAppError(err error) *errors.AppError {
	switch {
	case errors.IsAppError(err):
		return errors.GetAppError(err)
	case stderrors.Is(err, domain.ErrInvalidDescription):
		return errors.WrapError(err, errors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrMicrophoneUnavailable):
		return errors.WrapError(err, errors.ErrCodeServiceUnavailable, err.Error(), http.StatusServiceUnavailable)
	case stderrors.Is(err, domain.ErrMicrophoneInactive),
		stderrors.Is(err, domain.ErrNoDataChannel),
		stderrors.Is(err, domain.ErrWrongRole),
		stderrors.Is(err, domain.ErrBusy),
		stderrors.Is(err, domain.ErrSessionClosed):
		return errors.NewPreconditionError(err)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return errors.WrapError(err, errors.ErrCodeServiceUnavailable, "request cancelled", http.StatusServiceUnavailable)
	default:
		return errors.WrapError(err, errors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	}
}
