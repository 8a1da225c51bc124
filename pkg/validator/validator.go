package validator

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var channelKinds = map[string]struct{}{
	"chat":  {},
	"sms":   {},
	"email": {},
}

var sourceKinds = map[string]struct{}{
	"candidates_by_status":  {},
	"silent_candidates":     {},
	"shift_workers_by_site": {},
	"all_active_candidates": {},
}

// Register installs the custom binding validations on gin's validator engine:
// "channel" for outreach channel kinds, "source" for recipient source kinds,
// "daytime" for HH:MM cutoff strings.
func Register() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := engine.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		_, ok := channelKinds[fl.Field().String()]
		return ok
	}); err != nil {
		return err
	}

	if err := engine.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		_, ok := sourceKinds[fl.Field().String()]
		return ok
	}); err != nil {
		return err
	}

	return engine.RegisterValidation("daytime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
}
