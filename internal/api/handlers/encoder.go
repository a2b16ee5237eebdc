package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/profile"
)

type EncoderHandler struct {
	encoder     *lookback.Encoder
	profileName string
	profiles    *profile.Loader
}

func NewEncoderHandler(enc *lookback.Encoder, profileName string, profiles *profile.Loader) *EncoderHandler {
	return &EncoderHandler{
		encoder:     enc,
		profileName: profileName,
		profiles:    profiles,
	}
}

// GetEncoder returns the active encoder configuration and its derived sizes
func (h *EncoderHandler) GetEncoder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profile":            h.profileName,
		"min_note":           h.encoder.MinNote(),
		"max_note":           h.encoder.MaxNote(),
		"transpose_to_key":   h.encoder.TransposeToKey(),
		"lookback_distances": h.encoder.LookbackDistances(),
		"steps_per_bar":      lookback.StepsPerBar,
		"num_model_events":   h.encoder.NumModelEvents(),
		"input_size":         h.encoder.InputSize(),
		"num_classes":        h.encoder.NumClasses(),
	})
}

// ListProfiles returns every built-in encoder profile
func (h *EncoderHandler) ListProfiles(c *gin.Context) {
	profiles := h.profiles.ListProfiles()

	out := make([]gin.H, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, gin.H{
			"name":               p.Name,
			"description":        p.Description,
			"min_note":           int(p.MinNote),
			"max_note":           int(p.MaxNote),
			"transpose_to_key":   int(p.TransposeToKey),
			"lookback_distances": p.LookbackDistances,
			"active":             p.Name == h.profileName,
		})
	}

	c.JSON(http.StatusOK, gin.H{"profiles": out})
}
