package api

import (
	"net/http"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/journey"
	"github.com/gin-gonic/gin"
)

type journeyRequest struct {
	Route         uint      `json:"route" binding:"required"`
	Train         uint      `json:"train" binding:"required"`
	Crew          []uint    `json:"crew"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
}

type journeyPatchRequest struct {
	Route         *uint      `json:"route"`
	Train         *uint      `json:"train"`
	Crew          *[]uint    `json:"crew"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
}

func (r journeyRequest) opts() journey.Opts {
	return journey.Opts{
		RouteID:       r.Route,
		TrainID:       r.Train,
		CrewIDs:       r.Crew,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
	}
}

// handleJourneyList filters by ?route=<id> and ?departure_date=YYYY-MM-DD.
func handleJourneyList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters, err := journey.ParseFilters(c.Query("route"), c.Query("departure_date"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		journeys, err := journey.List(s.db, filters)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "journey", opList, journeys)
	}
}

func handleJourneyDetail(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		j, err := journey.Get(s.db, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "journey", opRetrieve, j)
	}
}

func handleJourneyCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req journeyRequest
		if !bindJSON(c, &req) {
			return
		}
		j, err := journey.Create(c.Request.Context(), s.db, req.opts())
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "journey", opWrite, j)
	}
}

func handleJourneyUpdate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var req journeyRequest
		if !bindJSON(c, &req) {
			return
		}
		j, err := journey.Update(c.Request.Context(), s.db, id, req.opts())
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "journey", opWrite, j)
	}
}

func handleJourneyPatch(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var req journeyPatchRequest
		if !bindJSON(c, &req) {
			return
		}
		j, err := journey.Patch(c.Request.Context(), s.db, id, journey.PatchOpts{
			RouteID:       req.Route,
			TrainID:       req.Train,
			CrewIDs:       req.Crew,
			DepartureTime: req.DepartureTime,
			ArrivalTime:   req.ArrivalTime,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "journey", opWrite, j)
	}
}

func handleJourneyDelete(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := journey.Delete(c.Request.Context(), s.db, id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
