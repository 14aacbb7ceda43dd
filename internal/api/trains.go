package api

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/catalog"
	"github.com/AntonKrinichnyi/trainstation/internal/media"
	"github.com/gin-gonic/gin"
)

// trainRequest carries the writable train fields. An "image" key in the
// body is ignored; images are set through the upload endpoint.
type trainRequest struct {
	Name          string `json:"name" binding:"required"`
	CargoNum      int    `json:"cargo_num" binding:"required"`
	PlacesInCargo int    `json:"places_in_cargo" binding:"required"`
	TrainType     uint   `json:"train_type" binding:"required"`
}

func (r trainRequest) opts() catalog.TrainOpts {
	return catalog.TrainOpts{
		Name:          r.Name,
		CargoNum:      r.CargoNum,
		PlacesInCargo: r.PlacesInCargo,
		TrainTypeID:   r.TrainType,
	}
}

type trainPatchRequest struct {
	Name          *string `json:"name"`
	CargoNum      *int    `json:"cargo_num"`
	PlacesInCargo *int    `json:"places_in_cargo"`
	TrainType     *uint   `json:"train_type"`
}

func handleTrainList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		trains, err := catalog.ListTrains(s.db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "train", opList, trains)
	}
}

func handleTrainDetail(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		train, err := catalog.GetTrain(s.db, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "train", opRetrieve, train)
	}
}

func handleTrainCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trainRequest
		if !bindJSON(c, &req) {
			return
		}
		train, err := catalog.CreateTrain(s.db, req.opts())
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "train", opWrite, train)
	}
}

func handleTrainUpdate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var req trainRequest
		if !bindJSON(c, &req) {
			return
		}
		train, err := catalog.UpdateTrain(s.db, id, req.opts())
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "train", opWrite, train)
	}
}

func handleTrainPatch(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var req trainPatchRequest
		if !bindJSON(c, &req) {
			return
		}
		train, err := catalog.PatchTrain(s.db, id, catalog.TrainPatch{
			Name:          req.Name,
			CargoNum:      req.CargoNum,
			PlacesInCargo: req.PlacesInCargo,
			TrainTypeID:   req.TrainType,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "train", opWrite, train)
	}
}

func handleTrainDelete(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := catalog.DeleteTrain(c.Request.Context(), s.db, s.store, id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleTrainImage stores a multipart "image" upload and makes it the
// train's image. The previous image file is removed once the new one is
// recorded.
func handleTrainImage(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		train, err := catalog.GetTrain(s.db, id)
		if err != nil {
			abortWithError(c, err)
			return
		}

		fh, err := c.FormFile("image")
		if err != nil {
			abortWithError(c, apperr.Validation("image", "no file was submitted"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			abortWithError(c, err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
		f.Close()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if len(data) > media.MaxImageSize {
			abortWithError(c, apperr.Validation("image", "image must not exceed 5 MiB"))
			return
		}
		ext, err := media.DetectImage(data)
		if err != nil {
			abortWithError(c, err)
			return
		}

		name := media.TrainImageName(train.Name, ext)
		if err := s.store.Save(name, bytes.NewReader(data)); err != nil {
			abortWithError(c, err)
			return
		}
		old, err := catalog.SetTrainImage(s.db, id, name)
		if err != nil {
			if rmErr := s.store.Remove(name); rmErr != nil {
				log.Printf("api: discard upload %s: %v", name, rmErr)
			}
			abortWithError(c, err)
			return
		}
		if old != "" && old != name {
			if err := s.store.Remove(old); err != nil {
				log.Printf("api: remove replaced image %s: %v", old, err)
			}
		}
		train.Image = name
		s.render(c, http.StatusOK, "train_image", opWrite, train)
	}
}
