package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/askarihq/patrolbot/internal/format"
	"github.com/go-chi/chi/v5"
)

// turnTimeout bounds one background turn end to end, including delivery.
const turnTimeout = 2 * time.Minute

const (
	msgMediaNotSupported  = "⚠️ Sorry, I can only process text messages. Please send your request as text."
	msgRateLimited        = "⚠️ You've reached the message limit. Please wait %d seconds before sending more messages."
	msgProcessingPrevious = "⏳ Please wait, I'm still processing your previous message."
)

// Responder produces the reply text for one inbound message.
type Responder interface {
	HandleMessage(ctx context.Context, id, text string) string
}

// TurnGuard serializes turns per conversation identifier.
type TurnGuard interface {
	TryBeginTurn(id string) bool
	EndTurn(id string)
}

// Handler receives Twilio webhooks and replies asynchronously so the
// webhook response returns within Twilio's deadline.
type Handler struct {
	responder Responder
	sender    Sender
	limiter   *RateLimiter
	guard     TurnGuard
	profile   format.Profile
	logger    *slog.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(responder Responder, sender Sender, limiter *RateLimiter, guard TurnGuard, profile format.Profile, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		responder: responder,
		sender:    sender,
		limiter:   limiter,
		guard:     guard,
		profile:   profile,
		logger:    logger,
	}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.handleWebhook)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	messageSID := r.PostFormValue("MessageSid")
	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))

	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	if !h.guard.TryBeginTurn(from) {
		h.logger.Info("Turn already in flight", "from", from)
		go h.deliver(from, []string{msgProcessingPrevious})
		respondEmpty(w)
		return
	}

	go h.process(from, body, messageSID, numMedia)

	// Twilio requires a prompt response; the reply is delivered out of
	// band via the REST API.
	respondEmpty(w)
}

func (h *Handler) process(from, body, messageSID string, numMedia int) {
	defer h.guard.EndTurn(from)

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	h.sender.Typing(ctx, messageSID)

	var reply string
	switch {
	case numMedia > 0:
		h.logger.Info("Rejected media message", "from", from)
		reply = msgMediaNotSupported
	case !h.limiter.Allow(from):
		h.logger.Warn("Rate limit exceeded", "from", from)
		reply = fmt.Sprintf(msgRateLimited, h.limiter.Remaining(from))
	default:
		reply = h.responder.HandleMessage(ctx, from, body)
	}

	h.deliver(from, format.Format(reply, h.profile))
}

func (h *Handler) deliver(to string, chunks []string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()
	if err := h.sender.Send(ctx, to, chunks); err != nil {
		h.logger.Error("Failed to deliver reply", "to", to, "error", err)
	}
}

func respondEmpty(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
}
