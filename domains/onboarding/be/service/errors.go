package service

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidTaxID       = errors.New("invalid tax id")
	ErrInvalidPostalCode  = errors.New("invalid postal code")
	ErrInvalidHandle      = errors.New("invalid username")
	ErrMissingPlan        = errors.New("missing plan")
	ErrMissingUser        = errors.New("missing user id")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrStepOutOfOrder     = errors.New("step submitted out of order")
)

// User-facing messages.
const (
	msgMissingField         = "Por favor, preencha todos os campos."
	msgInvalidTaxID         = "CPF ou CNPJ inválido. Verifique os números."
	msgInvalidPostalCode    = "CEP inválido. Use o formato com 8 dígitos."
	msgInvalidHandle        = "Username inválido. Use apenas letras, números e underline (min 3 caracteres)."
	msgInvalidBusinessTaxID = "CNPJ do estabelecimento inválido."
	msgInvalidBusinessCEP   = "CEP do estabelecimento inválido."
	msgMissingPlan          = "Por favor, selecione um plano."
	msgMissingUser          = "ID do usuário não encontrado. Por favor, volte ao passo 1."
	msgInFlight             = "Aguarde, sua solicitação anterior ainda está em andamento."
	msgOutOfOrder           = "Conclua as etapas anteriores antes de continuar."
	msgNoUserData           = "Nenhum dado retornado ao salvar o usuário."
)

// ValidationError is a local failure: nothing was sent to the data store and the step did not advance.
type ValidationError struct {
	Reason  error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %v", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %v", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// UserMessage is the text shown to the person filling the wizard.
func (e *ValidationError) UserMessage() string { return e.Message }

// StepError is a remote failure during a step. The session was left retryable.
type StepError struct {
	Step    int
	Message string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) UserMessage() string { return e.Message }

func invalid(reason error, field, message string) *ValidationError {
	return &ValidationError{Reason: reason, Field: field, Message: message}
}
