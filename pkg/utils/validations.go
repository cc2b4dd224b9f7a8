package utils

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/wagate/pkg/entities"
)

// RegisterValidators adds the gateway's custom tags to gin's binding
// validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}

func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("sessionid", IsValidSessionID); err != nil {
		return err
	}
	return v.RegisterValidation("retrypolicy", IsValidRetryPolicy)
}

func IsValidSessionID(fl validator.FieldLevel) bool {
	return entities.ValidSessionID(fl.Field().String())
}

func IsValidRetryPolicy(fl validator.FieldLevel) bool {
	switch strings.TrimSpace(fl.Field().String()) {
	case entities.RetryPolicyLinear, entities.RetryPolicyConstant, entities.RetryPolicyExponential:
		return true
	}
	return false
}
