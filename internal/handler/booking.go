package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/reservation"
)

// BookingHandler exposes the reservation engine to authenticated customers.
// It assumes JWTAuth has already run.
type BookingHandler struct {
    Engine *reservation.Engine
    Log    logrus.FieldLogger
}

func NewBookingHandler(engine *reservation.Engine, log logrus.FieldLogger) *BookingHandler {
    if engine == nil {
        panic("nil engine passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: engine, Log: log}
}

// createBookingReq is the POST /api/bookings body.  A totalAmount field,
// if sent, is ignored; the amount comes from the showtime price.
type createBookingReq struct {
    ShowtimeID uint64   `json:"showtimeId" validate:"required,gt=0"`
    SeatIDs    []uint64 `json:"seatIds"`
}

// Create handles POST /api/bookings.  It returns 201 with the booking on
// success.  Failures map onto the reservation error kinds: 400 for bad
// selections, 404 for unknown showtimes or seats, 409 with the conflicting
// seat ids when someone else got there first, 500 otherwise.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }

    // no requestTimeout: Reserve honours client disconnects
    booking, err := h.Engine.Reserve(c.Request().Context(), userID, req.ShowtimeID, req.SeatIDs)
    if err != nil {
        status, body := reservationErrorResponse(err)
        return c.JSON(status, body)
    }
    return c.JSON(http.StatusCreated, booking)
}

// List handles GET /api/bookings and returns the caller's bookings, newest
// first.
func (h *BookingHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    bookings, err := h.Engine.ListForUser(ctx, userID)
    if err != nil {
        h.Log.WithError(err).WithField("user_id", userID).Error("list bookings failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if bookings == nil {
        bookings = []model.BookingDetail{}
    }
    return c.JSON(http.StatusOK, bookings)
}

// reservationErrorResponse maps an Engine.Reserve error onto a status code
// and JSON body.  Infrastructure details never reach the client.
func reservationErrorResponse(err error) (int, echo.Map) {
    var re *reservation.Error
    if !errors.As(err, &re) {
        return http.StatusInternalServerError, echo.Map{"error": "booking failed", "code": reservation.CodeStorage}
    }
    body := echo.Map{"error": re.Err.Error(), "code": re.Code}
    switch re.Kind {
    case reservation.KindValidation:
        if len(re.SeatIDs) > 0 {
            body["duplicate_seat_ids"] = re.SeatIDs
        }
        return http.StatusBadRequest, body
    case reservation.KindNotFound:
        if len(re.SeatIDs) > 0 {
            body["unknown_seat_ids"] = re.SeatIDs
        }
        return http.StatusNotFound, body
    case reservation.KindConflict:
        body["conflicting_seat_ids"] = re.SeatIDs
        return http.StatusConflict, body
    }
    return http.StatusInternalServerError, echo.Map{"error": "booking failed", "code": reservation.CodeStorage}
}
