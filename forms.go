package travelblog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RegisterForm is submitted by /register.
type RegisterForm struct {
	Email    string `form:"email" validate:"required,email,max=100"`
	Name     string `form:"name" validate:"required,max=100"`
	Password string `form:"password" validate:"required,maxbytes=72"`
}

func (f *RegisterForm) normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Name = strings.TrimSpace(f.Name)
}

// LoginForm is submitted by /login.
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func (f *LoginForm) normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

// PostForm is submitted by /new-post and /edit-post. The image arrives as
// the multipart file "img_local" and is checked by the handler.
type PostForm struct {
	Title    string `form:"title" validate:"required,max=250"`
	Subtitle string `form:"subtitle" validate:"required,max=250"`
	Start    string `form:"start" validate:"required,max=250"`
	End      string `form:"end" validate:"required,max=250"`
	Body     string `form:"body" validate:"required"`
	ImgLocal string `form:"-"`
}

func (f *PostForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Subtitle = strings.TrimSpace(f.Subtitle)
	f.Start = strings.TrimSpace(f.Start)
	f.End = strings.TrimSpace(f.End)
	f.Body = strings.TrimSpace(f.Body)
}

// PostFormFrom pre-fills the edit form from a stored post.
func PostFormFrom(p BlogPost) PostForm {
	return PostForm{
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Start:    p.Start,
		End:      p.End,
		Body:     p.Body,
		ImgLocal: p.ImgLocal,
	}
}

// CommentForm is submitted on a post page.
type CommentForm struct {
	Text string `form:"comment_text" validate:"required"`
}

func (f *CommentForm) normalize() {
	f.Text = strings.TrimSpace(f.Text)
}

// FormErrors maps a form field name to the message shown next to it.
type FormErrors map[string]string

// Get returns the message for field, or "".
func (e FormErrors) Get(field string) string {
	return e[field]
}

// Add records msg for field, creating the map if needed.
func (e *FormErrors) Add(field, msg string) {
	if *e == nil {
		*e = FormErrors{}
	}
	(*e)[field] = msg
}

type normalizer interface {
	normalize()
}

// formValidator adapts go-playground/validator to echo.Validator.
type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so errors line up with inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt rejects passwords longer than 72 bytes; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})
	return &formValidator{v: v}
}

func (fv *formValidator) Validate(i interface{}) error {
	return fv.v.Struct(i)
}

// bindForm decodes the request body into form, trims it and validates it.
// Validation problems come back as FormErrors; the error return is kept for
// malformed requests.
func bindForm(c echo.Context, form interface{}) (FormErrors, error) {
	if err := (&echo.DefaultBinder{}).BindBody(c, form); err != nil {
		return nil, err
	}
	if n, ok := form.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return toFormErrors(verrs), nil
		}
		return nil, err
	}
	return nil, nil
}

func toFormErrors(verrs validator.ValidationErrors) FormErrors {
	out := make(FormErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Must be at most %s bytes long.", fe.Param())
	default:
		return "Invalid value."
	}
}
