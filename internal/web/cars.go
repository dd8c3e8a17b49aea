package web

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"carrental/internal/client"
	"carrental/internal/model"
	"carrental/internal/resource"
)

const allTypes = "all"

func (s *Server) cars(c echo.Context, token string) resource.State[[]model.Car] {
	return resource.Query(c.Request().Context(), sessionFrom(c).Cache, resource.Cars, func(ctx context.Context) ([]model.Car, error) {
		return s.api.ListCars(ctx, token)
	})
}

func (s *Server) car(c echo.Context, token string, id uint) resource.State[*model.Car] {
	return resource.Query(c.Request().Context(), sessionFrom(c).Cache, resource.CarKey(id), func(ctx context.Context) (*model.Car, error) {
		return s.api.GetCar(ctx, token, id)
	})
}

// carTypes returns the distinct non-empty types, sorted.
func carTypes(cars []model.Car) []string {
	seen := make(map[string]struct{})
	types := []string{}
	for _, car := range cars {
		if car.Type == "" {
			continue
		}
		if _, ok := seen[car.Type]; ok {
			continue
		}
		seen[car.Type] = struct{}{}
		types = append(types, car.Type)
	}
	sort.Strings(types)
	return types
}

func filterByType(cars []model.Car, typ string) []model.Car {
	if typ == "" || typ == allTypes {
		return cars
	}
	out := []model.Car{}
	for _, car := range cars {
		if car.Type == typ {
			out = append(out, car)
		}
	}
	return out
}

func (s *Server) carList(c echo.Context) error {
	snap := sessionFrom(c).Snapshot()
	view := CarListView{View: "cars", Cars: []model.Car{}, Types: []string{}, SelectedType: allTypes, Flash: s.flash(c)}

	st := s.cars(c, snap.Token)
	if st.Err != nil && !st.HasData() {
		view.Error = MsgErrorLoadingCars
		return c.JSON(statusOf(st.Err), view)
	}

	all := st.Data
	if t := c.QueryParam("type"); t != "" {
		view.SelectedType = t
	}
	view.Types = carTypes(all)
	view.Cars = filterByType(all, view.SelectedType)
	switch {
	case len(all) == 0:
		view.Empty = MsgNoCars
	case len(view.Cars) == 0:
		view.Empty = MsgNoCarsForType
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) carDetails(c echo.Context) error {
	snap := sessionFrom(c).Snapshot()
	view := CarDetailsView{View: "car-details", Back: "/"}

	id, err := parseUintParam(c, "carId")
	if err != nil {
		view.Error = MsgCarNotFound
		return c.JSON(http.StatusNotFound, view)
	}

	st := s.car(c, snap.Token, id)
	if st.Err != nil && !st.HasData() {
		if client.IsNotFound(st.Err) {
			view.Error = MsgCarNotFound
			return c.JSON(http.StatusNotFound, view)
		}
		view.Error = MsgCarLoadFailed
		return c.JSON(statusOf(st.Err), view)
	}
	if st.Data == nil {
		view.Error = MsgCarNotFound
		return c.JSON(http.StatusNotFound, view)
	}
	view.Car = st.Data
	view.CanEdit = snap.IsAdmin()
	return c.JSON(http.StatusOK, view)
}

func (s *Server) navBar(c echo.Context) error {
	sc := sessionFrom(c)
	snap := sc.Snapshot()
	view := NavView{
		View:          "nav",
		Authenticated: snap.IsAuthenticated(),
		Admin:         snap.IsAdmin(),
		Flash:         s.flash(c),
	}
	if snap.IsAuthenticated() {
		view.DisplayName = snap.User.DisplayName()
		if st := sc.Cart.View(c.Request().Context()); st.Data != nil {
			view.CartCount = st.Data.ItemCount()
		}
	}
	return c.JSON(http.StatusOK, view)
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(n), nil
}
