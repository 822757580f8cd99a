package models

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "trade-journal/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(tradeStructLevel, Trade{})
	})
	return validate
}

// tradeStructLevel enforces that partial closes never exceed the position size.
func tradeStructLevel(sl validator.StructLevel) {
	t := sl.Current().Interface().(Trade)
	var closed float64
	for _, p := range t.PartialCloses {
		closed += p.LotSize
	}
	if closed > t.LotSize+1e-9 {
		sl.ReportError(t.PartialCloses, "PartialCloses", "partial_closes", "partial_lots_lte_lot_size", fmt.Sprintf("%g", t.LotSize))
	}
}

// ValidateTrade checks user-entered trade fields. The first rejected field
// is returned as a *errors.ValidationError.
func ValidateTrade(t *Trade) error {
	return fieldError(validatorInstance().Struct(t))
}

// ValidateJournal checks journal-level fields, excluding trades and alerts.
func ValidateJournal(j *Journal) error {
	return fieldError(validatorInstance().StructExcept(j, "Trades", "Alerts"))
}

func fieldError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	msg := "must satisfy " + fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}
	return apperrors.NewValidationError(fe.Field(), fe.Value(), msg)
}
