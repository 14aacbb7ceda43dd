package api

import (
	"net/http"

	"github.com/AntonKrinichnyi/trainstation/internal/catalog"
	"github.com/gin-gonic/gin"
)

type stationRequest struct {
	Name      string   `json:"name" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type trainTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

type crewRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type routeRequest struct {
	Source      uint `json:"source" binding:"required"`
	Destination uint `json:"destination" binding:"required"`
	Distance    int  `json:"distance" binding:"required"`
}

func handleStationList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		stations, err := catalog.ListStations(s.db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "station", opList, stations)
	}
}

func handleStationCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stationRequest
		if !bindJSON(c, &req) {
			return
		}
		st, err := catalog.CreateStation(s.db, catalog.StationOpts{
			Name:      req.Name,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "station", opWrite, st)
	}
}

func handleTrainTypeList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := catalog.ListTrainTypes(s.db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "train_type", opList, types)
	}
}

func handleTrainTypeCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trainTypeRequest
		if !bindJSON(c, &req) {
			return
		}
		tt, err := catalog.CreateTrainType(s.db, req.Name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "train_type", opWrite, tt)
	}
}

func handleCrewList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		crew, err := catalog.ListCrew(s.db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "crew", opList, crew)
	}
}

func handleCrewCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req crewRequest
		if !bindJSON(c, &req) {
			return
		}
		member, err := catalog.CreateCrew(s.db, catalog.CrewOpts{FirstName: req.FirstName, LastName: req.LastName})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "crew", opWrite, member)
	}
}

func handleRouteList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		source, err := queryID(c, "source")
		if err != nil {
			abortWithError(c, err)
			return
		}
		dest, err := queryID(c, "destination")
		if err != nil {
			abortWithError(c, err)
			return
		}
		routes, err := catalog.ListRoutes(s.db, catalog.RouteFilters{SourceID: source, DestinationID: dest})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "route", opList, routes)
	}
}

func handleRouteDetail(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		route, err := catalog.GetRoute(s.db, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusOK, "route", opRetrieve, route)
	}
}

func handleRouteCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req routeRequest
		if !bindJSON(c, &req) {
			return
		}
		route, err := catalog.CreateRoute(s.db, catalog.RouteOpts{
			SourceID:      req.Source,
			DestinationID: req.Destination,
			Distance:      req.Distance,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "route", opWrite, route)
	}
}
