package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/scanner"
)

// SettingsHandler exposes the scan settings singleton. Updates bump the
// settings version, which invalidates every track's scan version on the next
// run.
type SettingsHandler struct {
	store   *catalog.Store
	service *scanner.Service
	bus     *events.EventBus
}

func NewSettingsHandler(store *catalog.Store, service *scanner.Service, bus *events.EventBus) *SettingsHandler {
	return &SettingsHandler{store: store, service: service, bus: bus}
}

// Get returns the current scan settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	var settings *database.ScanSettings
	err := h.store.WriteTx(func(tx *gorm.DB) error {
		var err error
		settings, err = catalog.GetScanSettings(tx)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

type updateSettingsRequest struct {
	UpdatePeriod      *string `json:"update_period"`
	StartTime         *string `json:"start_time"`
	AudioExtensions   *string `json:"audio_extensions"`
	ArtistDelimiters  *string `json:"artist_delimiters"`
	DefaultDelimiters *string `json:"default_delimiters"`
	ExtraTags         *string `json:"extra_tags"`
	SkipDuplicateMBID *bool   `json:"skip_duplicate_mbid"`
}

var startTimeRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Update applies partial settings changes and reloads the scanner.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.UpdatePeriod != nil {
		switch database.ScanUpdatePeriod(*req.UpdatePeriod) {
		case database.PeriodNever, database.PeriodHourly, database.PeriodDaily,
			database.PeriodWeekly, database.PeriodMonthly:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update_period"})
			return
		}
	}
	if req.StartTime != nil && !startTimeRe.MatchString(*req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be HH:MM"})
		return
	}

	var settings *database.ScanSettings
	err := h.store.WriteTx(func(tx *gorm.DB) error {
		var err error
		settings, err = catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		if req.UpdatePeriod != nil {
			settings.UpdatePeriod = database.ScanUpdatePeriod(*req.UpdatePeriod)
		}
		if req.StartTime != nil {
			settings.StartTime = *req.StartTime
		}
		if req.AudioExtensions != nil {
			settings.AudioExtensions = *req.AudioExtensions
		}
		if req.ArtistDelimiters != nil {
			settings.ArtistDelimiters = *req.ArtistDelimiters
		}
		if req.DefaultDelimiters != nil {
			settings.DefaultDelimiters = *req.DefaultDelimiters
		}
		if req.ExtraTags != nil {
			settings.ExtraTags = *req.ExtraTags
		}
		if req.SkipDuplicateMBID != nil {
			settings.SkipDuplicateMBID = *req.SkipDuplicateMBID
		}
		return catalog.UpdateScanSettings(tx, settings)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	event := events.NewEvent(events.EventSettingsUpdated, "api", "Scan settings updated", "")
	event.Data["version"] = settings.Version
	h.bus.PublishAsync(event)

	h.service.RequestReload()
	c.JSON(http.StatusOK, settings)
}
