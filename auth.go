package travelblog

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	msgAlreadyRegistered = "You've already signed up with that email, log in instead!"
	msgUnknownEmail      = "That email does not exist, please try again."
	msgWrongPassword     = "Password incorrect, please try again."
	msgLoginToComment    = "You need to login or register to comment."
	msgTooManyAttempts   = "Too many login attempts. Try again later."
)

func (a *App) handleRegister(c echo.Context) error {
	var form RegisterForm
	if c.Request().Method == http.MethodGet {
		return Render(c, a.Views.Register(a.page(c, "Register"), form, nil))
	}

	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs != nil {
		form.Password = ""
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Register(a.page(c, "Register"), form, errs))
	}

	ctx := c.Request().Context()
	_, err = a.Store.GetUserByEmail(ctx, form.Email)
	switch {
	case err == nil:
		return a.flashRedirect(c, msgAlreadyRegistered, "/login")
	case !errors.Is(err, ErrNotFound):
		return err
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		return err
	}
	user := User{Email: form.Email, Name: form.Name, Password: hash}
	if err := a.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return a.flashRedirect(c, msgAlreadyRegistered, "/login")
		}
		return err
	}
	a.metrics.UsersRegistered.Inc()
	a.Log.WithFields(logrus.Fields{"user_id": user.ID, "admin": user.IsAdmin}).Info("user registered")

	if err := setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleLogin(c echo.Context) error {
	var form LoginForm
	if c.Request().Method == http.MethodGet {
		return Render(c, a.Views.Login(a.page(c, "Log In"), form, nil))
	}

	ip := c.RealIP()
	if !a.limiter.Check(ip) {
		a.metrics.LoginFailures.WithLabelValues("rate_limited").Inc()
		errs := FormErrors{"email": msgTooManyAttempts}
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.Login(a.page(c, "Log In"), form, errs))
	}

	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs != nil {
		form.Password = ""
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Login(a.page(c, "Log In"), form, errs))
	}

	user, err := a.Store.GetUserByEmail(c.Request().Context(), form.Email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		a.limiter.Record(ip)
		a.metrics.LoginFailures.WithLabelValues("unknown_email").Inc()
		return a.flashRedirect(c, msgUnknownEmail, "/login")
	}
	if !CheckPassword(user.Password, form.Password) {
		a.limiter.Record(ip)
		a.metrics.LoginFailures.WithLabelValues("wrong_password").Inc()
		return a.flashRedirect(c, msgWrongPassword, "/login")
	}

	a.limiter.Reset(ip)
	if err := setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// flashRedirect queues msg and redirects to target.
func (a *App) flashRedirect(c echo.Context, msg, target string) error {
	if err := addFlash(c, msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, target)
}
