package api

import (
	"net/http"

	"github.com/AntonKrinichnyi/trainstation/internal/booking"
	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	"github.com/gin-gonic/gin"
)

type ticketRequest struct {
	Cargo   int  `json:"cargo"`
	Seat    int  `json:"seat"`
	Journey uint `json:"journey" binding:"required"`
}

type orderRequest struct {
	Tickets []ticketRequest `json:"tickets" binding:"dive"`
}

// handleOrderList pages through the caller's own orders.
func handleOrderList(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := s.pager.parse(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		user := currentUser(c)
		orders, total, err := booking.ListOrders(s.db, user.ID, req.size, req.offset())
		if err != nil {
			abortWithError(c, err)
			return
		}
		results, err := s.proj.project("order", opList, orders)
		if err != nil {
			abortWithError(c, err)
			return
		}
		pg, err := s.pager.envelope(c, req, total, results)
		if err != nil {
			abortWithError(c, err)
			return
		}
		writePage(c, pg)
	}
}

// handleOrderCreate books every ticket of the request for the caller.
func handleOrderCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderRequest
		if !bindJSON(c, &req) {
			return
		}
		specs := make([]booking.TicketSpec, len(req.Tickets))
		for i, t := range req.Tickets {
			specs[i] = booking.TicketSpec{JourneyID: t.Journey, Cargo: t.Cargo, Seat: t.Seat}
		}

		user := currentUser(c)
		order, err := booking.CreateOrder(c.Request.Context(), s.db, user.ID, specs)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ordersCreated.Inc()
		ticketsBooked.Add(float64(len(order.Tickets)))
		if s.notifier != nil {
			notify.Go(s.notifier, notify.OrderNotice(*order, user.Email))
		}
		s.render(c, http.StatusCreated, "order", opWrite, order)
	}
}
