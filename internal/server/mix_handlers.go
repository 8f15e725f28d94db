package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/ambient-mixer/internal/domain"
)

// getMix godoc
// @Summary Current mix
// @Tags Mix
// @Produce json
// @Success 200 {object} MixResponse
// @Router /api/v1/mix [get]
func (s *Server) getMix(c *gin.Context) {
	c.JSON(http.StatusOK, mixResponse(s.mixes.Current()))
}

// addTrack godoc
// @Summary Add a sound to the mix
// @Tags Mix
// @Accept json
// @Produce json
// @Param request body AddTrackRequest true "Track"
// @Success 201 {object} MixResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/mix/tracks [post]
func (s *Server) addTrack(c *gin.Context) {
	var req AddTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	volume := domain.DefaultTrackVolume
	if req.Volume != nil {
		volume = *req.Volume
	}

	m, err := s.mixes.AddTrack(c.Request.Context(), req.ID, volume)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mixResponse(m))
}

// removeTrack godoc
// @Summary Remove a sound from the mix
// @Tags Mix
// @Produce json
// @Param id path string true "Sound ID"
// @Success 200 {object} MixResponse
// @Router /api/v1/mix/tracks/{id} [delete]
func (s *Server) removeTrack(c *gin.Context) {
	m, err := s.mixes.RemoveTrack(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mixResponse(m))
}

// setTrackVolume godoc
// @Summary Change a track volume
// @Description With live set, the volume is previewed without changing the mix.
// @Tags Mix
// @Accept json
// @Produce json
// @Param id path string true "Sound ID"
// @Param request body VolumeRequest true "Volume"
// @Success 200 {object} MixResponse
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/mix/tracks/{id}/volume [put]
func (s *Server) setTrackVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	id := c.Param("id")

	if req.Live {
		if err := s.mixes.SetTrackVolumeLive(c.Request.Context(), id, *req.Volume); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, MessageResponse{Message: "Volume preview applied"})
		return
	}

	m, err := s.mixes.SetTrackVolume(c.Request.Context(), id, *req.Volume)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mixResponse(m))
}

// setMasterVolume godoc
// @Summary Change the master volume
// @Description Out of range values are clamped to 0-100.
// @Tags Mix
// @Accept json
// @Produce json
// @Param request body VolumeRequest true "Volume"
// @Success 200 {object} MixResponse
// @Router /api/v1/mix/master [put]
func (s *Server) setMasterVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	m, err := s.mixes.SetMasterVolume(c.Request.Context(), *req.Volume)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mixResponse(m))
}

// clearMix godoc
// @Summary Stop everything and start an empty mix
// @Tags Mix
// @Produce json
// @Success 200 {object} MixResponse
// @Router /api/v1/mix [delete]
func (s *Server) clearMix(c *gin.Context) {
	c.JSON(http.StatusOK, mixResponse(s.mixes.Clear(c.Request.Context())))
}

// listMixes godoc
// @Summary List saved mixes
// @Tags Mixes
// @Produce json
// @Success 200 {object} SavedMixesResponse
// @Router /api/v1/mixes [get]
func (s *Server) listMixes(c *gin.Context) {
	names, err := s.mixes.ListSaved()
	if err != nil {
		writeError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, SavedMixesResponse{Mixes: names})
}

// saveMix godoc
// @Summary Save the current mix
// @Tags Mixes
// @Produce json
// @Param name path string true "Mix name"
// @Success 201 {object} MessageResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/mixes/{name} [post]
func (s *Server) saveMix(c *gin.Context) {
	name := c.Param("name")
	if err := s.mixes.Save(name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: fmt.Sprintf("Mix %s saved", name)})
}

// loadMix godoc
// @Summary Load a saved mix and play it
// @Tags Mixes
// @Produce json
// @Param name path string true "Mix name"
// @Success 200 {object} MixResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/mixes/{name}/load [post]
func (s *Server) loadMix(c *gin.Context) {
	m, err := s.mixes.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mixResponse(m))
}

// deleteMix godoc
// @Summary Delete a saved mix
// @Tags Mixes
// @Produce json
// @Param name path string true "Mix name"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/mixes/{name} [delete]
func (s *Server) deleteMix(c *gin.Context) {
	name := c.Param("name")
	if err := s.mixes.DeleteSaved(name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("Mix %s deleted", name)})
}
