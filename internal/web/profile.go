package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"carrental/internal/client"
	"carrental/internal/model"
	"carrental/internal/resource"
)

func (s *Server) me(c echo.Context, token string) resource.State[*model.User] {
	return resource.Query(c.Request().Context(), sessionFrom(c).Cache, resource.Me, func(ctx context.Context) (*model.User, error) {
		return s.api.GetProfile(ctx, token)
	})
}

func (s *Server) profile(c echo.Context) error {
	snap := sessionFrom(c).Snapshot()
	st := s.me(c, snap.Token)
	if st.Err != nil && !st.HasData() {
		return c.JSON(statusOf(st.Err), ProfileView{View: "profile", Error: MsgProfileLoadFailed + ": " + client.Message(st.Err, MsgGeneric)})
	}
	return c.JSON(http.StatusOK, ProfileView{View: "profile", User: st.Data})
}

func (s *Server) updateProfile(c echo.Context) error {
	sc := sessionFrom(c)
	snap := sc.Snapshot()

	var form ProfileForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, ProfileView{View: "profile", Error: MsgProfileFailed})
	}
	form.normalize()
	if errs := validateForm(s.validate, &form); errs != nil {
		msg := MsgAllFieldsRequired
		if _, bad := errs["email"]; bad && form.Email != "" {
			msg = errs["email"]
		}
		if _, bad := errs["password"]; bad && form.Password != "" {
			msg = errs["password"]
		}
		return c.JSON(http.StatusBadRequest, FormView{View: "profile", Values: form, Errors: errs, Error: msg})
	}

	ctx := c.Request().Context()
	user, keys, err := s.api.UpdateProfile(ctx, snap.Token, client.ProfileUpdate{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		UserName:  form.UserName,
		Email:     form.Email,
		Password:  form.Password,
	})
	if err != nil {
		form.Password = ""
		return c.JSON(statusOf(err), FormView{
			View:   "profile",
			Values: form,
			Errors: mergeServerFields(nil, err),
			Error:  MsgProfileFailed,
		})
	}
	sc.Cache.Invalidate(keys...)
	if _, err := sc.Store.Refresh(ctx, user, snap.Token); err != nil {
		s.log.Warnf("session %s: refresh user: %v", sc.ID(), err)
	}
	return c.JSON(http.StatusOK, ProfileView{View: "profile", User: user, Message: MsgProfileUpdated})
}

func (s *Server) deleteProfile(c echo.Context) error {
	sc := sessionFrom(c)
	snap := sc.Snapshot()
	ctx := c.Request().Context()

	keys, err := s.api.DeleteProfile(ctx, snap.Token)
	if err != nil {
		return c.JSON(statusOf(err), ProfileView{View: "profile", User: snap.User, Error: MsgAccountDeleteError})
	}
	sc.Cache.Invalidate(keys...)
	if err := sc.Store.Logout(ctx); err != nil {
		s.log.Warnf("session %s: logout after delete: %v", sc.ID(), err)
	}
	return c.JSON(http.StatusOK, MessageView{View: "account-deleted", Message: MsgAccountDeleted})
}
