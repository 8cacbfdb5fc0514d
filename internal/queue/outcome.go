package queue

import (
	"errors"

	"github.com/mitchellh/mapstructure"
	"github.com/vfg2006/pulse-analytics-api/internal/domain"
)

// PermanentError marca uma falha que nunca deve ser re-tentada (erros de
// autenticação, assinatura inválida, plataforma desconhecida). A fila decide
// retry vs. terminal por esse tipo, nunca por string de mensagem.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent envolve um erro como falha permanente
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent verifica se o erro (ou sua cadeia) é uma falha permanente
func IsPermanent(err error) bool {
	permanent := &PermanentError{}
	return errors.As(err, &permanent)
}

// DecodePayload decodifica o payload JSON do job em um contrato tipado
func DecodePayload(job *domain.Job, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true, // payloads vêm de JSONB: números chegam como float64
	})
	if err != nil {
		return err
	}

	return decoder.Decode(job.Payload)
}
