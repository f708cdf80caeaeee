package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/scanner"
)

// LibraryHandler manages the configured media libraries.
type LibraryHandler struct {
	store   *catalog.Store
	service *scanner.Service
	bus     *events.EventBus
}

func NewLibraryHandler(store *catalog.Store, service *scanner.Service, bus *events.EventBus) *LibraryHandler {
	return &LibraryHandler{store: store, service: service, bus: bus}
}

// List returns all libraries.
func (h *LibraryHandler) List(c *gin.Context) {
	var libraries []database.MediaLibrary
	err := h.store.ReadTx(func(tx *gorm.DB) error {
		var err error
		libraries, err = catalog.ListLibraries(tx)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"libraries": libraries})
}

type createLibraryRequest struct {
	Name     string `json:"name" binding:"required"`
	RootPath string `json:"root_path" binding:"required"`
}

// Create adds a library root. The path is normalized to an absolute clean
// path and must be unique.
func (h *LibraryHandler) Create(c *gin.Context) {
	var req createLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	root, err := filepath.Abs(filepath.Clean(req.RootPath))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid root path"})
		return
	}

	library := database.MediaLibrary{Name: req.Name, RootPath: root}
	err = h.store.WriteTx(func(tx *gorm.DB) error {
		return catalog.CreateLibrary(tx, &library)
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	event := events.NewEvent(events.EventLibraryAdded, "api", "Library added", library.Name)
	event.Data["library_id"] = library.ID
	event.Data["root_path"] = library.RootPath
	h.bus.PublishAsync(event)

	h.service.RequestReload()
	c.JSON(http.StatusCreated, library)
}

// Delete removes a library and all of its tracks; orphaned entities are
// swept on the next scan.
func (h *LibraryHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.store.WriteTx(func(tx *gorm.DB) error {
		return catalog.DeleteLibrary(tx, id)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	event := events.NewEvent(events.EventLibraryRemoved, "api", "Library removed", id)
	event.Data["library_id"] = id
	h.bus.PublishAsync(event)

	h.service.RequestReload()
	c.JSON(http.StatusOK, gin.H{"message": "library removed"})
}
