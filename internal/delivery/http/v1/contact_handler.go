package v1

import (
	"io"
	"net/http"

	"portfolio-backend/internal/delivery/http/middleware"
	"portfolio-backend/internal/delivery/http/response"
	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// MaxContactBodyBytes caps the request body; the largest valid form is well under it.
const MaxContactBodyBytes = 64 << 10

// Client-visible messages of the contact endpoint.
const (
	MsgContactSent        = "Message sent successfully! I'll get back to you soon."
	MsgTooManyRequests    = "Too many requests. Please try again later."
	MsgValidationFailed   = "Validation failed"
	MsgCaptchaFailed      = "Captcha verification failed. Please try again."
	MsgServiceUnavailable = "Email service temporarily unavailable. Please try again later."
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
}

// ContactConfig is what the frontend needs to render the challenge widget
type ContactConfig struct {
	SiteKey string `json:"siteKey"`
}

// NewContactHandler registers the contact routes (public, no auth required)
func NewContactHandler(public *gin.RouterGroup, contactUC domain.ContactUsecase) {
	handler := &ContactHandler{
		contactUC: contactUC,
	}

	public.POST("/contact", handler.SubmitContact)
	public.GET("/contact/config", handler.GetConfig)
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Send a message to the site owner. Limited to 5 submissions per client per 15 minutes.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactRequest  true  "Contact Form Data"
// @Success      200      {object}  response.SuccessResponse
// @Failure      400      {object}  response.ErrorResponse
// @Failure      405      {object}  response.ErrorResponse
// @Failure      429      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Failure      503      {object}  response.ErrorResponse
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	// An unreadable or oversized body is passed on as nil and reported
	// as a body error after the rate check.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxContactBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		body = nil
	}

	result := h.contactUC.Submit(c.Request.Context(), domain.Submission{
		ClientKey: middleware.ClientKey(c),
		Body:      body,
	})

	switch result.Outcome {
	case domain.OutcomeAccepted:
		response.Success(c, http.StatusOK, MsgContactSent, nil)
	case domain.OutcomeRateLimited:
		middleware.SetRetryAfter(c, result.RetryAt)
		c.Error(apperror.TooManyRequests(MsgTooManyRequests))
	case domain.OutcomeInvalid:
		c.Error(apperror.BadRequest(MsgValidationFailed).WithDetails(result.FieldErrors))
	case domain.OutcomeChallengeFailed:
		c.Error(apperror.BadRequest(MsgCaptchaFailed))
	case domain.OutcomeUnavailable:
		c.Error(apperror.ServiceUnavailable(MsgServiceUnavailable, result.Err))
	default:
		c.Error(apperror.Internal(result.Err))
	}
}

// GetConfig godoc
// @Summary      Contact Form Configuration
// @Description  Returns the public Turnstile site key used to render the captcha widget.
// @Tags         contact
// @Produce      json
// @Success      200  {object}  response.SuccessResponse{data=ContactConfig}
// @Router       /contact/config [get]
func (h *ContactHandler) GetConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, "Contact configuration", ContactConfig{SiteKey: h.contactUC.SiteKey()})
}
