package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dew-77/homework-bot/internal/watcher"
	"github.com/dew-77/homework-bot/pkg/logx"
)

// ErrMissingCredentials is returned by Validate when any of the required
// credentials is absent. It is not retryable.
var ErrMissingCredentials = errors.New("missing required configuration")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report env names for credentials, json paths otherwise.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if env := fld.Tag.Get("env"); env != "" {
				return env
			}
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			_, err := ParseDurationField("", fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
			return logx.ValidLevel(fl.Field().String())
		})
		_ = v.RegisterValidation("chatid", func(fl validator.FieldLevel) bool {
			_, err := strconv.ParseInt(strings.TrimSpace(fl.Field().String()), 10, 64)
			return err == nil
		})
		_ = v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
			_, err := watcher.ParseSchedule(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate checks cfg. Missing credentials are reported together and wrap
// ErrMissingCredentials; any other problem is reported as a plain error.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" && isCredential(fe.Field()) {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, describe(fe))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(invalid, "; "))
}

func isCredential(field string) bool {
	switch field {
	case EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID:
		return true
	}
	return false
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.<json path>"; drop the root type.
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + " is required"
	case "duration":
		return fmt.Sprintf("%s: invalid duration %q", ns, fe.Value())
	case "loglevel":
		return fmt.Sprintf("%s: unknown log level %q", ns, fe.Value())
	case "chatid":
		return fmt.Sprintf("%s: chat id must be an integer, got %q", ns, fe.Value())
	case "schedule":
		return fmt.Sprintf("%s: invalid schedule %q", ns, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", ns, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s %s", ns, fe.Tag(), fe.Param())
	}
}
