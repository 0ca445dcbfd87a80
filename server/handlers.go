package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plantfinder/database"
	"plantfinder/imageprocessor"
	"plantfinder/matcher"
	"plantfinder/types"
	"plantfinder/utils"
)

// Client facing error messages
const (
	errNoFile          = "No file uploaded"
	errNoFileSelected  = "No file selected"
	errInvalidFileType = "Invalid file type. Please upload a PNG, JPG, or JPEG image."
	errFileTooLarge    = "File too large. The maximum upload size is 16 MB."
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type resultPage struct {
	ImagePath    string
	Plant        *types.PlantMatch
	ErrorMessage string
}

// isXHR reports whether the request comes from script rather than a form post
func isXHR(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

func respondError(c *gin.Context, xhr bool, status int, message string) {
	if xhr {
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.String(status, message)
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"MaxUploadMB": s.cfg.MaxUploadBytes / (1024 * 1024),
	})
}

func (s *Server) ping(c *gin.Context) {
	if err := s.plants.Ping(c.Request.Context()); err != nil {
		s.logger.Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// upload handles POST /upload
func (s *Server) upload(c *gin.Context) {
	xhr := isXHR(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, xhr, http.StatusRequestEntityTooLarge, errFileTooLarge)
			return
		}
		if errors.Is(err, http.ErrMissingFile) && emptyFileInput(c.Request, "file") {
			respondError(c, xhr, http.StatusBadRequest, errNoFileSelected)
			return
		}
		respondError(c, xhr, http.StatusBadRequest, errNoFile)
		return
	}

	if !imageprocessor.IsAllowedUpload(fileHeader.Filename) {
		respondError(c, xhr, http.StatusBadRequest, errInvalidFileType)
		return
	}

	data, err := readFormFile(fileHeader)
	if err != nil {
		s.processingError(c, xhr, err)
		return
	}

	filename := utils.SecureFilename(fileHeader.Filename)
	if filename == "" || !imageprocessor.IsAllowedUpload(filename) {
		filename = "upload." + imageprocessor.UploadExtension(fileHeader.Filename)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.UploadDir, filename), data, 0o644); err != nil {
		s.processingError(c, xhr, fmt.Errorf("cannot store upload: %w", err))
		return
	}

	result, err := s.matcher.FindBestMatch(c.Request.Context(), data)
	if err != nil {
		s.processingError(c, xhr, err)
		return
	}

	imagePath := path.Join("uploads", filename)
	imageURL := path.Join(UploadURLPrefix, filename)

	if result.Outcome != matcher.Matched {
		s.logger.Info("No plant matched upload",
			zap.String("filename", filename),
			zap.String("outcome", result.Outcome.String()),
			zap.Int("scanned", result.Scanned),
			zap.Int("skipped", result.Skipped))

		if xhr {
			c.JSON(http.StatusNotFound, gin.H{"error": result.Reason})
			return
		}
		c.HTML(http.StatusOK, "result.html", resultPage{ImagePath: imagePath, ErrorMessage: result.Reason})
		return
	}

	plant := result.Plant
	s.logger.Info("Plant matched upload",
		zap.String("filename", filename),
		zap.Int64("plant_id", plant.ID),
		zap.Int("distance", plant.Confidence))

	if xhr {
		c.JSON(http.StatusOK, gin.H{
			"success":               true,
			"plant_name":            plant.Name,
			"scientific_name":       plant.ScientificName,
			"common_names":          plant.CommonNames,
			"medicinal_properties":  plant.MedicinalProperties,
			"growing_conditions":    plant.GrowingConditions,
			"harvesting_guidelines": plant.HarvestingGuidelines,
			"precautions":           plant.Precautions,
			"image_url":             imageURL,
			"confidence":            plant.Confidence,
		})
		return
	}
	c.HTML(http.StatusOK, "result.html", resultPage{ImagePath: imagePath, Plant: plant})
}

// emptyFileInput reports whether the form carried the field with an empty filename,
// which is what a browser sends when the file input was left empty. multipart keeps
// such parts as plain values rather than files.
func emptyFileInput(r *http.Request, field string) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.Value[field]) > 0
}

func (s *Server) processingError(c *gin.Context, xhr bool, err error) {
	s.logger.Error("Error processing image", zap.Error(err))
	_ = c.Error(err)

	if xhr {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusInternalServerError, "Error processing image: %s", err.Error())
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read upload: %w", err)
	}
	return data, nil
}

// listPlants handles GET /plants
func (s *Server) listPlants(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(parsed, maxListLimit)
	}

	plants, err := s.plants.ListPlants(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list plants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plants": plants})
}

// getPlant handles GET /plants/:id
func (s *Server) getPlant(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plant ID"})
		return
	}

	plant, err := s.plants.GetPlantByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plant not found"})
			return
		}
		s.logger.Error("Failed to get plant", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plant": plant})
}
