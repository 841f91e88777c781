package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
	"github.com/rpupo63/blog-cms-backend/services"
)

const confirmationTTL = 48 * time.Hour

type newsletterHandler struct {
	responder      Responder
	logger         zerolog.Logger
	newsletterRepo *database.NewsletterRepo
	mailer         services.Mailer
	baseURL        string
	clock          clock.Clock
}

func newNewsletterHandler(newsletterRepo *database.NewsletterRepo, mailer services.Mailer, baseURL string, clk clock.Clock) newsletterHandler {
	logger := log.With().Str("handlerName", "newsletterHandler").Logger()

	return newsletterHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		newsletterRepo: newsletterRepo,
		mailer:         mailer,
		baseURL:        strings.TrimRight(baseURL, "/"),
		clock:          clk,
	}
}

type subscribeRequest struct {
	Email string  `json:"email" validate:"required,email,max=254"`
	Name  *string `json:"name" validate:"omitnil,max=120"`
}

func newSubscriptionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// subscribe registers a pending subscriber and sends the confirmation link
// @Summary Subscribe to the newsletter
// @Tags Newsletters
// @Accept json
// @Produce json
// @Param subscription body subscribeRequest true "E-mail and optional name"
// @Success 201 {object} envelope "Pending subscription"
// @Failure 400 {object} envelope "Invalid e-mail"
// @Failure 429 {object} envelope "Too many requests"
// @Router /api/newsletters [post]
func (h newsletterHandler) subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscribeRequest
		if err := decodeJSON(w, r, "subscription", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		sub, err := h.newsletterRepo.FindByEmail(r.Context(), email)
		if err != nil && !errs.IsNotFound(err) {
			h.responder.WriteError(w, wrapDatabaseError("find", "subscription", err))
			return
		}
		if sub != nil && sub.Status == models.SubscriberActive {
			h.responder.WriteData(w, http.StatusOK, sub, "Already subscribed")
			return
		}

		token, err := newSubscriptionToken()
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("failed to create token", err))
			return
		}
		expiresAt := h.clock.Now().UTC().Add(confirmationTTL)

		if sub == nil {
			sub = &models.NewsletterSubscriber{
				Email:          email,
				Name:           req.Name,
				Status:         models.SubscriberPending,
				Token:          token,
				TokenExpiresAt: &expiresAt,
			}
			err = h.newsletterRepo.Create(r.Context(), sub)
		} else {
			if req.Name != nil {
				sub.Name = req.Name
			}
			sub.Status = models.SubscriberPending
			sub.Token = token
			sub.TokenExpiresAt = &expiresAt
			sub.ConfirmedAt = nil
			err = h.newsletterRepo.Save(r.Context(), sub)
		}
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("save", "subscription", err))
			return
		}

		if err := h.mailer.Send(r.Context(), h.confirmationEmail(sub)); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("subscriberId", sub.ID.String()).Msg("confirmation e-mail sent")
		h.responder.WriteData(w, http.StatusCreated, sub, "Check your inbox to confirm the subscription")
	}
}

func (h newsletterHandler) confirmationEmail(sub *models.NewsletterSubscriber) services.Email {
	link := fmt.Sprintf("%s/api/newsletters/confirmation?token=%s", h.baseURL, url.QueryEscape(sub.Token))
	greeting := "Hello"
	if sub.Name != nil && *sub.Name != "" {
		greeting = "Hello " + *sub.Name
	}
	return services.Email{
		To:      []string{sub.Email},
		Subject: "Confirm your subscription",
		HTML: fmt.Sprintf(`<p>%s,</p><p>Confirm your subscription by following <a href="%s">this link</a>. It expires in 48 hours.</p>`,
			html.EscapeString(greeting), html.EscapeString(link)),
		Text: fmt.Sprintf("%s,\n\nConfirm your subscription: %s\nThe link expires in 48 hours.\n", greeting, link),
	}
}

// confirm activates the subscription owning the token
// @Summary Confirm a subscription
// @Tags Newsletters
// @Produce json
// @Param token query string true "Confirmation token"
// @Success 200 {object} envelope "Subscription confirmed"
// @Failure 400 {object} envelope "Missing or expired token"
// @Failure 404 {object} envelope "Unknown token"
// @Router /api/newsletters/confirmation [get]
func (h newsletterHandler) confirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("token"))
			return
		}

		sub, err := h.newsletterRepo.FindByToken(r.Context(), token)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "subscription", err))
			return
		}

		if sub.Status == models.SubscriberActive {
			h.responder.WriteData(w, http.StatusOK, sub, "Subscription already confirmed")
			return
		}

		now := h.clock.Now().UTC()
		if sub.TokenExpiresAt != nil && now.After(*sub.TokenExpiresAt) {
			h.responder.WriteError(w, errs.NewLinkExpiredError("confirmation link"))
			return
		}

		sub.Status = models.SubscriberActive
		sub.ConfirmedAt = &now
		sub.TokenExpiresAt = nil
		if err := h.newsletterRepo.Save(r.Context(), sub); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("save", "subscription", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, sub, "Subscription confirmed")
	}
}

// unsubscribe keeps the row so the address is not re-added by accident.
func (h newsletterHandler) unsubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("token"))
			return
		}

		sub, err := h.newsletterRepo.FindByToken(r.Context(), token)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "subscription", err))
			return
		}

		if sub.Status != models.SubscriberUnsubscribed {
			sub.Status = models.SubscriberUnsubscribed
			if err := h.newsletterRepo.Save(r.Context(), sub); err != nil {
				h.responder.WriteError(w, wrapDatabaseError("save", "subscription", err))
				return
			}
		}

		h.responder.WriteData(w, http.StatusOK, sub, "Unsubscribed successfully")
	}
}

func (h newsletterHandler) listSubscribers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.SubscriberStatus(r.URL.Query().Get("status"))
		switch status {
		case "", models.SubscriberPending, models.SubscriberActive, models.SubscriberUnsubscribed:
		default:
			h.responder.WriteError(w, errs.NewInvalidFieldError("status", "must be one of pending active unsubscribed"))
			return
		}

		page, err := queryInt(r, "page", 1)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		limit, err := queryInt(r, "limit", 10)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		subs, total, err := h.newsletterRepo.List(r.Context(), status, page, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "subscriptions", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       subs,
			Message:    "Subscribers retrieved successfully",
			Pagination: newPaginationClamped(page, limit, total),
		})
	}
}
