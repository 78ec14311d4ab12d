package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// NewValidator returns the validator shared by every service, with the global
// and the user validators registered on the english translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate, translator
}
