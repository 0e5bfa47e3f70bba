package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/audit"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Auditor reports identities whose embeddings are within matching tolerance of
// each other or of a probe face.
type Auditor interface {
	AmbiguousPairs(ctx context.Context) ([]audit.Pair, error)
	Candidates(ctx context.Context, probe embedding.Vector) ([]database.NearestIdentity, error)
	Tolerance() float64
}

// Embedder turns an uploaded photo into a face embedding.
type Embedder interface {
	Embed(ctx context.Context, image []byte) (embedding.Vector, error)
}

// AuditHandler serves the ambiguity report and candidate lookups.
type AuditHandler struct {
	auditor  Auditor
	embedder Embedder
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditor Auditor, embedder Embedder) *AuditHandler {
	return &AuditHandler{auditor: auditor, embedder: embedder}
}

// PairResponse is one ambiguous identity pair.
type PairResponse struct {
	First    IdentityResponse `json:"first"`
	Second   IdentityResponse `json:"second"`
	Distance float64          `json:"distance"`
}

// AmbiguousResponse is the body of GET /api/v1/audit/ambiguous.
type AmbiguousResponse struct {
	Tolerance float64        `json:"tolerance"`
	Pairs     []PairResponse `json:"pairs"`
}

// CandidateResponse is one identity that would match the uploaded face.
type CandidateResponse struct {
	Identity IdentityResponse `json:"identity"`
	Distance float64          `json:"distance"`
}

// CandidatesResponse is the body of POST /api/v1/audit/candidates.
type CandidatesResponse struct {
	Tolerance  float64             `json:"tolerance"`
	Candidates []CandidateResponse `json:"candidates"`
}

// Ambiguous handles GET /api/v1/audit/ambiguous.
func (h *AuditHandler) Ambiguous(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.auditor.AmbiguousPairs(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("ambiguity audit failed")
		respondError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	resp := AmbiguousResponse{Tolerance: h.auditor.Tolerance(), Pairs: make([]PairResponse, 0, len(pairs))}
	for _, p := range pairs {
		resp.Pairs = append(resp.Pairs, PairResponse{
			First:    toIdentityResponse(p.First),
			Second:   toIdentityResponse(p.Second),
			Distance: p.Distance,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Candidates handles POST /api/v1/audit/candidates. It lists every identity within
// tolerance of the face in the uploaded image, closest first, without marking attendance.
func (h *AuditHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := parseForm(w, r); err != nil {
		if isTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, uploadTooLargeMessage)
			return
		}
		respondError(w, http.StatusBadRequest, "multipart form with an image is required")
		return
	}
	image, err := readFormFile(r, "image")
	if errors.Is(err, errMissingFile) || (err == nil && len(image) == 0) {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	if err != nil {
		log.WithError(err).Warn("failed to read uploaded image")
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	probe, err := h.embedder.Embed(r.Context(), image)
	if err != nil {
		status, _, message := classify(err)
		logFailure(r.Context(), err, status, "candidate lookup failed")
		respondError(w, status, message)
		return
	}

	candidates, err := h.auditor.Candidates(r.Context(), probe)
	if err != nil {
		log.WithError(err).Error("candidate lookup failed")
		respondError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	resp := CandidatesResponse{Tolerance: h.auditor.Tolerance(), Candidates: make([]CandidateResponse, 0, len(candidates))}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, CandidateResponse{
			Identity: toIdentityResponse(c.Identity),
			Distance: c.Distance,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
