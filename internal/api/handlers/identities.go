package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
	"github.com/kalaburagitech/face-recognition-sub000/internal/storage"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type IdentityHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewIdentityHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *IdentityHandler {
	return &IdentityHandler{db: db, minio: minio}
}

func identityResponse(i *models.Identity, faceCount int) dto.IdentityResponse {
	return dto.IdentityResponse{
		ID:          i.ID,
		Region:      i.Region,
		ExternalID:  i.ExternalID,
		Name:        i.Name,
		Rank:        i.Rank,
		Description: i.Description,
		FaceCount:   faceCount,
		CreatedAt:   i.CreatedAt.Format(timeFormat),
		UpdatedAt:   i.UpdatedAt.Format(timeFormat),
	}
}

func (h *IdentityHandler) Create(c *gin.Context) {
	var req dto.CreateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ExternalID != "" {
		existing, err := h.db.GetIdentityByExternalID(c.Request.Context(), req.Region, req.ExternalID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "external_id already registered in region"})
			return
		}
	}

	identity := &models.Identity{
		ID:          uuid.New(),
		Region:      req.Region,
		ExternalID:  req.ExternalID,
		Name:        req.Name,
		Rank:        req.Rank,
		Description: req.Description,
	}
	if err := h.db.CreateIdentity(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, identityResponse(identity, 0))
}

func (h *IdentityHandler) List(c *gin.Context) {
	identities, err := h.db.ListIdentities(c.Request.Context(), c.Query("region"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.IdentityResponse, 0, len(identities))
	for _, i := range identities {
		faceCount, _ := h.db.CountFaces(c.Request.Context(), i.ID)
		resp = append(resp, identityResponse(&i, faceCount))
	}

	c.JSON(http.StatusOK, dto.IdentityListResponse{Identities: resp, Total: len(resp)})
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	identity, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if identity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	faceCount, _ := h.db.CountFaces(c.Request.Context(), id)
	c.JSON(http.StatusOK, identityResponse(identity, faceCount))
}

func (h *IdentityHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	var req dto.UpdateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if identity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	if req.Name != "" {
		identity.Name = req.Name
	}
	if req.Rank != "" {
		identity.Rank = req.Rank
	}
	if req.Description != "" {
		identity.Description = req.Description
	}

	if err := h.db.UpdateIdentity(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	faceCount, _ := h.db.CountFaces(c.Request.Context(), id)
	c.JSON(http.StatusOK, identityResponse(identity, faceCount))
}

// Delete removes the identity with its face records and attendance rows,
// then clears stored photos as a best effort.
func (h *IdentityHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	identity, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if identity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	if err := h.db.DeleteIdentity(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.minio.DeleteIdentityImages(c.Request.Context(), identity.Region, id); err != nil {
		slog.Warn("delete identity images", "identity_id", id, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *IdentityHandler) ListFaces(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	faces, err := h.db.ListFaceRecords(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceRecordResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, dto.FaceRecordResponse{
			ID:         f.ID,
			IdentityID: f.IdentityID,
			Confidence: f.Confidence,
			Quality:    f.Quality,
			ImageKey:   f.ImageKey,
			CreatedAt:  f.CreatedAt.Format(timeFormat),
		})
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

func (h *IdentityHandler) DeleteFace(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	if err := h.db.DeleteFaceRecord(c.Request.Context(), id, faceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
