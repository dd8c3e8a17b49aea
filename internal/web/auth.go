package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/client"
	"carrental/internal/guard"
	"carrental/internal/model"
)

func (s *Server) loginForm(c echo.Context) error {
	msg := c.QueryParam("message")
	if flash := s.flash(c); flash != "" {
		msg = flash
	}
	return c.JSON(http.StatusOK, FormView{
		View:    "login",
		Message: msg,
		From:    guard.SafeFrom(c.QueryParam("from"), defaultFrom),
	})
}

func (s *Server) login(c echo.Context) error {
	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "login", Error: MsgLoginFailed})
	}
	form.normalize()
	from := guard.SafeFrom(form.From, defaultFrom)
	values := map[string]string{"username": form.Username}

	if errs := validateForm(s.validate, &form); errs != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "login", Values: values, Errors: errs, From: from})
	}

	ctx := c.Request().Context()
	res, err := s.api.Login(ctx, form.Username, form.Password)
	if err != nil {
		status := statusOf(err)
		if status == http.StatusBadRequest || status == http.StatusNotFound {
			status = http.StatusUnauthorized
		}
		return c.JSON(status, FormView{
			View:   "login",
			Values: values,
			Error:  client.Message(err, MsgLoginFailed),
			From:   from,
		})
	}

	user, err := s.api.GetProfile(ctx, res.Token)
	if err != nil {
		s.log.Warnf("profile after login for %s: %v", res.Username, err)
		user = &model.User{UserID: res.UserID, UserName: res.Username, Role: res.Role}
	}

	sc := sessionFrom(c)
	if err := sc.Store.Login(ctx, user, res.Token); err != nil {
		s.log.Errorf("session %s: login: %v", sc.ID(), err)
		return c.JSON(http.StatusInternalServerError, FormView{View: "login", Values: values, Error: MsgGeneric, From: from})
	}
	return seeOther(c, from)
}

func (s *Server) logout(c echo.Context) error {
	sc := sessionFrom(c)
	if err := sc.Store.Logout(c.Request().Context()); err != nil {
		s.log.Warnf("session %s: logout: %v", sc.ID(), err)
	}
	return seeOther(c, "/")
}

func (s *Server) registerForm(c echo.Context) error {
	return c.JSON(http.StatusOK, FormView{View: "register"})
}

func (s *Server) register(c echo.Context) error {
	var form RegisterForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "register", Error: MsgRegisterFailed})
	}
	form.normalize()
	values := form
	values.Password, values.ConfirmPassword = "", ""

	if errs := validateForm(s.validate, &form); errs != nil {
		return c.JSON(http.StatusBadRequest, FormView{View: "register", Values: values, Errors: errs})
	}

	_, _, err := s.api.AddUser(c.Request().Context(), "", client.NewUser{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		UserName:  form.UserName,
		Email:     form.Email,
		Password:  form.Password,
		Role:      model.RoleUser,
		CreatedAt: model.NewTimestamp(s.cfg.Now()),
	})
	if err != nil {
		return c.JSON(statusOf(err), FormView{
			View:   "register",
			Values: values,
			Errors: mergeServerFields(nil, err),
			Error:  client.Message(err, MsgRegisterFailed),
		})
	}
	return seeOther(c, guard.Redirect{To: guard.LoginPath, Message: MsgRegistered}.URL())
}
