package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/client"
	"carrental/internal/model"
	"carrental/internal/resource"
)

func (s *Server) carsManagement(c echo.Context) error {
	snap := sessionFrom(c).Snapshot()
	st := s.cars(c, snap.Token)
	if st.Err != nil && !st.HasData() {
		return c.JSON(statusOf(st.Err), CarsManagementView{View: "cars-management", Cars: []model.Car{}, Error: MsgCarsFetchFailed})
	}
	view := CarsManagementView{View: "cars-management", Cars: st.Data}
	if view.Cars == nil {
		view.Cars = []model.Car{}
	}
	if len(view.Cars) == 0 {
		view.Empty = MsgNoManagedCars
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) deleteCar(c echo.Context) error {
	sc := sessionFrom(c)
	id, err := parseUintParam(c, "carId")
	if err != nil {
		return err
	}
	keys, err := s.api.DeleteCar(c.Request().Context(), sc.Snapshot().Token, id)
	if err != nil {
		return c.JSON(statusOf(err), CarsManagementView{View: "cars-management", Cars: []model.Car{}, Error: MsgCarDeleteFailed})
	}
	sc.Cache.Invalidate(keys...)
	return seeOther(c, "/cars-management")
}

func (s *Server) addCarForm(c echo.Context) error {
	return c.JSON(http.StatusOK, FormView{View: "add-car"})
}

// carInput binds and checks a car form. A non-nil view means the form is
// invalid and has been rendered.
func (s *Server) carInput(c echo.Context, view string) (client.CarInput, *FormView) {
	var form CarForm
	if err := c.Bind(&form); err != nil {
		return client.CarInput{}, &FormView{View: view, Error: MsgCarCreateFailed}
	}
	form.normalize()
	in, errs := form.input(validateForm(s.validate, &form), s.cfg.Now())
	if errs != nil {
		return client.CarInput{}, &FormView{View: view, Values: form, Errors: errs}
	}
	return in, nil
}

func (s *Server) addCar(c echo.Context) error {
	in, invalid := s.carInput(c, "add-car")
	if invalid != nil {
		return c.JSON(http.StatusBadRequest, invalid)
	}
	sc := sessionFrom(c)
	_, keys, err := s.api.CreateCar(c.Request().Context(), sc.Snapshot().Token, in)
	if err != nil {
		return c.JSON(statusOf(err), FormView{
			View:   "add-car",
			Values: in,
			Errors: mergeServerFields(nil, err),
			Error:  MsgCarCreateFailed,
		})
	}
	sc.Cache.Invalidate(keys...)
	return seeOther(c, "/cars-management")
}

func (s *Server) editCarForm(c echo.Context) error {
	id, err := parseUintParam(c, "carId")
	if err != nil {
		return c.JSON(http.StatusNotFound, FormView{View: "edit-car", Error: MsgCarNotFound})
	}
	st := s.car(c, sessionFrom(c).Snapshot().Token, id)
	if st.Err != nil && !st.HasData() {
		if client.IsNotFound(st.Err) {
			return c.JSON(http.StatusNotFound, FormView{View: "edit-car", Error: MsgCarNotFound})
		}
		return c.JSON(statusOf(st.Err), FormView{View: "edit-car", Error: MsgCarLoadFailed})
	}
	return c.JSON(http.StatusOK, FormView{View: "edit-car", Values: st.Data})
}

func (s *Server) editCar(c echo.Context) error {
	id, err := parseUintParam(c, "carId")
	if err != nil {
		return c.JSON(http.StatusNotFound, FormView{View: "edit-car", Error: MsgCarNotFound})
	}
	in, invalid := s.carInput(c, "edit-car")
	if invalid != nil {
		return c.JSON(http.StatusBadRequest, invalid)
	}
	sc := sessionFrom(c)
	_, keys, err := s.api.UpdateCar(c.Request().Context(), sc.Snapshot().Token, id, in)
	if err != nil {
		msg := MsgCarUpdateFailed
		if client.IsNotFound(err) {
			msg = MsgCarNotFound
		}
		return c.JSON(statusOf(err), FormView{
			View:   "edit-car",
			Values: in,
			Errors: mergeServerFields(nil, err),
			Error:  msg,
		})
	}
	sc.Cache.Invalidate(keys...)
	return seeOther(c, fmt.Sprintf("/car-details/%d", id))
}

func (s *Server) users(c echo.Context, token string) resource.State[[]model.User] {
	return resource.Query(c.Request().Context(), sessionFrom(c).Cache, resource.Users, func(ctx context.Context) ([]model.User, error) {
		return s.api.ListUsers(ctx, token)
	})
}

func (s *Server) userManagement(c echo.Context) error {
	st := s.users(c, sessionFrom(c).Snapshot().Token)
	if st.Err != nil && !st.HasData() {
		return c.JSON(statusOf(st.Err), UserManagementView{View: "user-management", Users: []model.User{}, Error: MsgUsersFetchFailed})
	}
	view := UserManagementView{View: "user-management", Users: st.Data}
	if view.Users == nil {
		view.Users = []model.User{}
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) createUser(c echo.Context) error {
	var form UserForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "user-management", Error: MsgAllFieldsRequired})
	}
	form.normalize()
	values := form
	values.Password = ""
	if errs := validateForm(s.validate, &form); errs != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "user-management", Values: values, Errors: errs, Error: MsgAllFieldsRequired})
	}

	sc := sessionFrom(c)
	_, keys, err := s.api.AddUser(c.Request().Context(), sc.Snapshot().Token, client.NewUser{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		UserName:  form.UserName,
		Email:     form.Email,
		Password:  form.Password,
		Role:      form.Role,
		CreatedAt: model.NewTimestamp(s.cfg.Now()),
	})
	if err != nil {
		return c.JSON(statusOf(err), FormView{
			View:   "user-management",
			Values: values,
			Errors: mergeServerFields(nil, err),
			Error:  MsgUserCreateFailed,
		})
	}
	sc.Cache.Invalidate(keys...)
	return seeOther(c, "/user-management")
}

func (s *Server) deleteUser(c echo.Context) error {
	sc := sessionFrom(c)
	id, err := parseUintParam(c, "userId")
	if err != nil {
		return err
	}
	keys, err := s.api.DeleteUser(c.Request().Context(), sc.Snapshot().Token, id)
	if err != nil {
		return c.JSON(statusOf(err), UserManagementView{View: "user-management", Users: []model.User{}, Error: MsgUserDeleteFailed})
	}
	sc.Cache.Invalidate(keys...)
	return seeOther(c, "/user-management")
}
