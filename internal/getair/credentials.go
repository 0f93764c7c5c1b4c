package getair

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Credentials identify the account and the device to manage.
// Clients and token managers keep their own normalized copy.
type Credentials struct {
	AuthURL  string `validate:"required,http_url"`
	APIURL   string `validate:"required,http_url"`
	ClientID string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	DeviceID string `validate:"len=12,hexadecimal"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeDeviceID converts a device ID to the form used by the cloud service: upper case, without separators.
func NormalizeDeviceID(id string) string {
	return strings.ToUpper(strings.NewReplacer(":", "", "-", "", " ", "").Replace(strings.TrimSpace(id)))
}

// Normalized returns a copy of the credentials with a normalized device ID and trailing slashes removed from the endpoints.
func (c Credentials) Normalized() Credentials {
	c.DeviceID = NormalizeDeviceID(c.DeviceID)
	c.AuthURL = strings.TrimRight(c.AuthURL, "/")
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return c
}

// Validate reports all missing or malformed fields. The device ID is checked in its normalized form.
func (c Credentials) Validate() error {
	c.DeviceID = NormalizeDeviceID(c.DeviceID)
	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Password":
			errs = append(errs, errors.New("password is missing"))
		case "DeviceID":
			errs = append(errs, fmt.Errorf("device id must be 12 hexadecimal digits: %q", fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s is invalid (%s): %q", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return errors.Join(errs...)
}

// Key identifies the session these credentials open. It does not contain the password.
func (c Credentials) Key() string {
	return c.Username + "@" + c.AuthURL + "#" + c.ClientID
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("auth_url", c.AuthURL),
		slog.String("api_url", c.APIURL),
		slog.String("username", c.Username),
		slog.String("device_id", c.DeviceID),
	)
}
