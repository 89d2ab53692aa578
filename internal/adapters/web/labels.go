package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plantcare/internal/blob"
	"plantcare/internal/core"
	"plantcare/internal/label"
)

type labelView struct {
	shell
	LoadErr  string
	NoData   string
	Error    string
	Plants   []core.Plant
	PlantID  int64
	Label    *label.Label
	Archived []blob.Info
}

func (s *Server) labelScreen(c *gin.Context) {
	ctx := c.Request.Context()
	view := labelView{shell: newShell("labels", "Print pot labels")}
	plants, err := s.svc.ListPlants(ctx)
	switch {
	case err != nil:
		view.LoadErr = dbError(err)
		c.HTML(http.StatusOK, "labels.tmpl", view)
		return
	case len(plants) == 0:
		view.NoData = "No plants in the database."
		c.HTML(http.StatusOK, "labels.tmpl", view)
		return
	}
	view.Plants, view.PlantID = plants, plants[0].ID

	raw := c.Query("plant")
	if raw == "" {
		c.HTML(http.StatusOK, "labels.tmpl", view)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		view.Error = "Invalid plant id " + strconv.Quote(raw)
		c.HTML(http.StatusBadRequest, "labels.tmpl", view)
		return
	}
	view.PlantID = id
	lbl, err := s.labels.Generate(ctx, id)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusOK
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		view.Error = dbError(err)
		c.HTML(status, "labels.tmpl", view)
		return
	}
	view.Label = &lbl
	if archived, err := s.labels.Archived(ctx, id); err != nil {
		_ = c.Error(err)
	} else {
		view.Archived = archived
	}
	c.HTML(http.StatusOK, "labels.tmpl", view)
}

func (s *Server) labelImage(c *gin.Context) {
	lbl, ok := s.generateFromPath(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "image/png", lbl.PNG)
}

func (s *Server) labelDownload(c *gin.Context) {
	lbl, ok := s.generateFromPath(c)
	if !ok {
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": lbl.Filename})
	if disposition == "" {
		disposition = mime.FormatMediaType("attachment", map[string]string{"filename": "label.png"})
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, "image/png", lbl.PNG)
}

func (s *Server) generateFromPath(c *gin.Context) (label.Label, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid plant id %q", c.Param("id"))
		return label.Label{}, false
	}
	lbl, err := s.labels.Generate(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		if isNotFound(err) {
			c.String(http.StatusNotFound, "%s", err.Error())
		} else {
			c.String(http.StatusInternalServerError, "%s", dbError(err))
		}
		return label.Label{}, false
	}
	return lbl, true
}
