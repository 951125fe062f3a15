package gatewayapi

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/epicrunze/evocable/internal/authn"
)

// registerValidators wires go-playground/validator custom tags into gin's
// shared validator engine, promoting it from an indirect dependency of
// gin's binding tags to a direct one with evocable-specific rules, per
// SPEC_FULL.md's domain-stack plan. The declarative struct tags are bound
// once at startup and run during binding; the handlers still repeat the
// username/email/password checks on the normalized values.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("evocable_username", validateUsername)
	_ = v.RegisterValidation("evocable_email", validateEmail)
	_ = v.RegisterValidation("evocable_password", validatePasswordField)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func validateEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(fl.Field().String())
}

// validatePasswordField runs the same policy internal/authn.ValidatePassword
// enforces at the handler layer, so a malformed password is rejected during
// gin's binding pass instead of falling through to business logic first.
func validatePasswordField(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return authn.ValidatePassword(fl.Field().String()) == nil
}
