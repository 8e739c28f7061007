package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kalaburagitech/face-recognition-sub000/internal/enroll"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/pkg/dto"
)

type EnrollHandler struct {
	enroller *enroll.Enroller
}

func NewEnrollHandler(enroller *enroll.Enroller) *EnrollHandler {
	return &EnrollHandler{enroller: enroller}
}

// Enroll accepts a multipart form with one image and identity fields,
// runs the duplicate guard, and persists a face record on success.
func (h *EnrollHandler) Enroll(c *gin.Context) {
	region := c.PostForm("region")
	name := c.PostForm("name")
	if region == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and name are required"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	outcome, err := h.enroller.Enroll(c.Request.Context(), enroll.Request{
		Region:      region,
		ExternalID:  c.PostForm("external_id"),
		Name:        name,
		Rank:        c.PostForm("rank"),
		Description: c.PostForm("description"),
		Image:       imageData,
		ImageName:   header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeEnrollError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.EnrollResponse{
		IdentityID: outcome.Identity.ID,
		FaceID:     outcome.Face.ID,
		Name:       outcome.Identity.Name,
		Region:     outcome.Identity.Region,
		Quality:    outcome.Quality,
		Created:    outcome.IdentityCreated,
	})
}

// EnrollBatch accepts multiple images for one identity under a single
// region critical section.
func (h *EnrollHandler) EnrollBatch(c *gin.Context) {
	region := c.PostForm("region")
	name := c.PostForm("name")
	if region == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and name are required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image required"})
		return
	}

	images := make([]enroll.BatchImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "open image " + fh.Filename + " failed"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read image " + fh.Filename + " failed"})
			return
		}
		images = append(images, enroll.BatchImage{
			Name:        fh.Filename,
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}

	outcome, err := h.enroller.EnrollBatch(c.Request.Context(), enroll.BatchRequest{
		Region:      region,
		ExternalID:  c.PostForm("external_id"),
		Name:        name,
		Rank:        c.PostForm("rank"),
		Description: c.PostForm("description"),
		Images:      images,
		Policy:      enroll.BatchPolicy(c.PostForm("policy")),
		Order:       enroll.BatchOrder(c.PostForm("order")),
	})
	if err != nil {
		writeEnrollError(c, err)
		return
	}

	items := make([]dto.BatchItemResponse, 0, len(outcome.Items))
	for _, it := range outcome.Items {
		items = append(items, dto.BatchItemResponse{
			Index:   it.Index,
			Name:    it.Name,
			OK:      it.OK,
			Skipped: it.Skipped,
			Error:   it.Error,
			FaceID:  it.FaceID,
			Quality: it.Quality,
		})
	}

	resp := dto.BatchEnrollResponse{
		Items:     items,
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
		Aborted:   outcome.Aborted,
	}
	if outcome.Identity != nil {
		resp.IdentityID = outcome.Identity.ID
		resp.Name = outcome.Identity.Name
		resp.Region = outcome.Identity.Region
	}

	status := http.StatusCreated
	if outcome.Succeeded == 0 {
		status = http.StatusUnprocessableEntity
	} else if outcome.Failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// DuplicateCheck runs the guard without enrolling. The result is advisory;
// enrollment re-checks inside the critical section.
func (h *EnrollHandler) DuplicateCheck(c *gin.Context) {
	region := c.PostForm("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	// Optional: exclude an existing identity's own faces from the check.
	externalID := c.PostForm("external_id")

	decision, err := h.enroller.CheckDuplicate(c.Request.Context(), region, externalID, imageData)
	if err != nil {
		writeEnrollError(c, err)
		return
	}

	resp := dto.DuplicateCheckResponse{Status: string(decision.Status)}
	if decision.Status == match.StatusDuplicate {
		resp.IdentityID = &decision.IdentityID
		resp.Name = decision.Name
		resp.Similarity = decision.Similarity
		resp.Score = match.ScorePercent(decision.Similarity)
	}
	c.JSON(http.StatusOK, resp)
}
