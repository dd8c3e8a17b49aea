package web

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"carrental/internal/client"
	"carrental/internal/model"
)

var looseEmail = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// formValue binds from either a JSON string or a JSON number.
type formValue string

func (f *formValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = formValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = formValue(n.String())
	return nil
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	From     string `json:"from" form:"from"`
}

// RegisterForm is the sign-up form.
type RegisterForm struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required,min=2,max=99"`
	LastName        string `json:"last_name" form:"last_name" validate:"required"`
	UserName        string `json:"user_name" form:"user_name" validate:"required,min=2,max=99"`
	Email           string `json:"email" form:"email" validate:"required,looseemail"`
	Password        string `json:"password,omitempty" form:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword,omitempty" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// ProfileForm edits the signed-in user. An empty password keeps the current
// one.
type ProfileForm struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required"`
	LastName  string `json:"last_name" form:"last_name" validate:"required"`
	UserName  string `json:"user_name" form:"user_name" validate:"required"`
	Email     string `json:"email" form:"email" validate:"required,looseemail"`
	Password  string `json:"password,omitempty" form:"password" validate:"omitempty,min=6"`
}

// CarForm creates or edits a car.
type CarForm struct {
	Make        string    `json:"make" form:"make" validate:"required"`
	Model       string    `json:"model" form:"model" validate:"required"`
	Year        formValue `json:"year" form:"year" validate:"required"`
	PricePerDay formValue `json:"price_per_day" form:"price_per_day"`
	Type        string    `json:"type" form:"type"`
	ImageURL    string    `json:"imageUrl" form:"imageUrl"`
}

// UserForm is the administrator's create-user form.
type UserForm struct {
	FirstName string     `json:"first_name" form:"first_name" validate:"required"`
	LastName  string     `json:"last_name" form:"last_name" validate:"required"`
	UserName  string     `json:"user_name" form:"user_name" validate:"required"`
	Email     string     `json:"email" form:"email" validate:"required,looseemail"`
	Password  string     `json:"password,omitempty" form:"password" validate:"required,min=6"`
	Role      model.Role `json:"role" form:"role" validate:"required,oneof=USER ADMIN"`
}

// CartItemForm adds a car or sets its days.
type CartItemForm struct {
	CarID uint   `json:"carId" form:"carId"`
	Days  int    `json:"days" form:"days"`
	From  string `json:"from" form:"from"`
}

// ClearCartForm confirms clearing the cart.
type ClearCartForm struct {
	Confirm bool   `json:"confirm" form:"confirm"`
	From    string `json:"from" form:"from"`
}

var fieldMessages = map[string]map[string]string{
	"username": {
		"required": "Username is required",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
	"first_name": {
		"required": "First name is required",
		"min":      "First name must be at least 2 characters",
		"max":      "First name must be less than 100 characters",
	},
	"last_name": {
		"required": "Last name is required",
	},
	"user_name": {
		"required": "Username is required",
		"min":      "Username must be at least 2 characters",
		"max":      "Username must be less than 100 characters",
	},
	"email": {
		"required":   "Email is required",
		"looseemail": "Please enter a valid email address",
	},
	"confirmPassword": {
		"required": "Please confirm your password",
		"eqfield":  "Passwords do not match",
	},
	"make": {
		"required": "Make is required",
	},
	"model": {
		"required": "Model is required",
	},
	"year": {
		"required": "Year is required",
	},
	"role": {
		"required": "Role is required",
		"oneof":    "Role must be USER or ADMIN",
	},
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
	return v
}

// validateForm returns field messages for every failed rule, or nil.
func validateForm(v *validator.Validate, form interface{}) map[string]string {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := fieldMessages[field][fe.Tag()]; ok {
			out[field] = msg
		} else {
			out[field] = field + " is invalid"
		}
	}
	return out
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func (f *LoginForm) normalize() { trim(&f.Username) }

func (f *RegisterForm) normalize() {
	trim(&f.FirstName, &f.LastName, &f.UserName, &f.Email)
}

func (f *ProfileForm) normalize() {
	trim(&f.FirstName, &f.LastName, &f.UserName, &f.Email)
}

func (f *UserForm) normalize() {
	trim(&f.FirstName, &f.LastName, &f.UserName, &f.Email)
	f.Role = model.Role(strings.ToUpper(strings.TrimSpace(string(f.Role))))
}

func (f *CarForm) normalize() {
	trim(&f.Make, &f.Model, &f.Type, &f.ImageURL)
	f.Year = formValue(strings.TrimSpace(string(f.Year)))
	f.PricePerDay = formValue(strings.TrimSpace(string(f.PricePerDay)))
}

// input checks year and price ranges and converts the form for the backend.
func (f *CarForm) input(errs map[string]string, now time.Time) (client.CarInput, map[string]string) {
	if errs == nil {
		errs = map[string]string{}
	}
	year, err := strconv.Atoi(string(f.Year))
	if f.Year != "" && (err != nil || year < 1900 || year > now.Year()+1) {
		errs["year"] = "Please enter a valid year"
	}
	price, err := decimal.NewFromString(string(f.PricePerDay))
	if err != nil || price.IsNegative() {
		errs["price_per_day"] = "Please enter a valid price per day"
	}
	if len(errs) > 0 {
		return client.CarInput{}, errs
	}
	return client.CarInput{
		Make:        f.Make,
		Model:       f.Model,
		Year:        year,
		PricePerDay: price.Round(2),
		Type:        f.Type,
		ImageURL:    f.ImageURL,
	}, nil
}

// mergeServerFields adds backend field messages that the form did not
// already report.
func mergeServerFields(errs map[string]string, err error) map[string]string {
	fields := client.Fields(err)
	if len(fields) == 0 {
		return errs
	}
	if errs == nil {
		errs = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		if _, ok := errs[k]; !ok {
			errs[k] = v
		}
	}
	return errs
}
