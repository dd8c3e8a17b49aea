package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"carrental/internal/cart"
	"carrental/internal/client"
	"carrental/internal/model"
)

func (s *Server) cartView(c echo.Context) error {
	return s.renderCart(c, http.StatusOK, "")
}

func (s *Server) renderCart(c echo.Context, status int, errMsg string) error {
	sc := sessionFrom(c)
	view := CartView{View: "cart", Items: []model.CartItem{}, TotalAmount: decimal.Zero, Error: errMsg, Flash: s.flash(c)}

	st := sc.Cart.View(c.Request().Context())
	if st.Err != nil && !st.HasData() {
		if view.Error == "" {
			view.Error = MsgCartLoadFailed
		}
		if status == http.StatusOK {
			status = statusOf(st.Err)
		}
		return c.JSON(status, view)
	}
	if st.Data != nil {
		if st.Data.Items != nil {
			view.Items = st.Data.Items
		}
		view.TotalAmount = st.Data.TotalAmount
		view.Count = st.Data.ItemCount()
	}
	view.Empty = st.Data.IsEmpty()
	if view.Empty {
		view.EmptyText = MsgCartEmpty
	}
	return c.JSON(status, view)
}

// cartResult renders the outcome of a cart transition.
func (s *Server) cartResult(c echo.Context, err error, failMsg string) error {
	var lre *cart.LoginRequiredError
	switch {
	case err == nil:
		return s.renderCart(c, http.StatusOK, "")
	case errors.As(err, &lre):
		return seeOther(c, lre.Redirect.URL())
	case errors.Is(err, cart.ErrBusy):
		return c.JSON(http.StatusConflict, MessageView{View: "cart", Message: err.Error()})
	case errors.Is(err, cart.ErrNotInCart):
		return s.renderCart(c, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNotConfirmed):
		return c.JSON(http.StatusBadRequest, MessageView{View: "confirm-clear", Message: MsgConfirmClear})
	default:
		return s.renderCart(c, statusOf(err), client.Message(err, failMsg))
	}
}

func (s *Server) addToCart(c echo.Context) error {
	var form CartItemForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, MessageView{View: "cart", Message: "invalid request"})
	}
	if form.CarID == 0 {
		return c.JSON(http.StatusBadRequest, MessageView{View: "cart", Message: "carId is required"})
	}
	err := sessionFrom(c).Cart.Add(c.Request().Context(), form.CarID, form.Days, fromOf(c, form.From))
	return s.cartResult(c, err, MsgCartUpdateFailed)
}

func (s *Server) setCartDays(c echo.Context) error {
	carID, err := parseUintParam(c, "carId")
	if err != nil {
		return err
	}
	var form CartItemForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, MessageView{View: "cart", Message: "invalid request"})
	}
	err = sessionFrom(c).Cart.SetDays(c.Request().Context(), carID, form.Days, fromOf(c, form.From))
	return s.cartResult(c, err, MsgCartUpdateFailed)
}

func (s *Server) incrementCartItem(c echo.Context) error {
	carID, err := parseUintParam(c, "carId")
	if err != nil {
		return err
	}
	err = sessionFrom(c).Cart.Increment(c.Request().Context(), carID, fromOf(c, c.FormValue("from")))
	return s.cartResult(c, err, MsgCartUpdateFailed)
}

func (s *Server) decrementCartItem(c echo.Context) error {
	carID, err := parseUintParam(c, "carId")
	if err != nil {
		return err
	}
	err = sessionFrom(c).Cart.Decrement(c.Request().Context(), carID, fromOf(c, c.FormValue("from")))
	return s.cartResult(c, err, MsgCartUpdateFailed)
}

func (s *Server) removeCartItem(c echo.Context) error {
	carID, err := parseUintParam(c, "carId")
	if err != nil {
		return err
	}
	err = sessionFrom(c).Cart.Remove(c.Request().Context(), carID, fromOf(c, c.FormValue("from")))
	return s.cartResult(c, err, MsgCartRemoveFailed)
}

func (s *Server) clearCart(c echo.Context) error {
	var form ClearCartForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, MessageView{View: "cart", Message: "invalid request"})
	}
	err := sessionFrom(c).Cart.Clear(c.Request().Context(), form.Confirm, fromOf(c, form.From))
	return s.cartResult(c, err, MsgCartUpdateFailed)
}

func (s *Server) checkout(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, MessageView{View: "checkout", Message: MsgCheckoutStub})
}
