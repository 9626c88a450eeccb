package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/response"
	"github.com/stemsi/akademi-backend/internal/service"
)

// CertificateHandler exposes the caller's certificates.
type CertificateHandler struct {
	guard *service.AccessGuard
	log   zerolog.Logger
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(guard *service.AccessGuard, log zerolog.Logger) *CertificateHandler {
	return &CertificateHandler{
		guard: guard,
		log:   log.With().Str("component", "certificate_handler").Logger(),
	}
}

// GetCertificate godoc
// GET /api/v1/attempts/:attempt_id/certificate
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	cert, err := h.guard.GetCertificate(c.Request.Context(), userID, attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, cert)
}

// IssueCertificate godoc
// POST /api/v1/attempts/:attempt_id/certificate
// Issues the certificate of a passed attempt if it is still missing.
// Returns the existing certificate when there already is one.
func (h *CertificateHandler) IssueCertificate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	cert, err := h.guard.IssueCertificateForUser(c.Request.Context(), userID, attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if cert == nil {
		response.Fail(c, http.StatusConflict, response.ErrNotEligible)
		return
	}

	response.Success(c, http.StatusOK, cert)
}

// ListCertificates godoc
// GET /api/v1/me/certificates
func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	certs, err := h.guard.ListCertificates(c.Request.Context(), userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificates": certs})
}
