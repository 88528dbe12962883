// Package mediaerr типизированные ошибки внешних поверхностей медиа ядра:
// очередь задач, конфигурация, разбор SDP, аудио устройство.
//
// Ядро (State, FrameCadenceAdapter) ошибок не возвращает: нарушения
// контракта обрабатывает пакет checks.
package mediaerr

import (
	"errors"
	"fmt"
)

// MediaErrorCode типизированный код ошибки.
type MediaErrorCode int

const (
	// Ошибки исполнения
	ErrorCodeQueueClosed MediaErrorCode = iota + 2000

	// Ошибки конфигурации
	ErrorCodeConfigInvalid

	// Ошибки аудио
	ErrorCodeAudioFrameInvalid
	ErrorCodeAudioProcessingFailed
	ErrorCodeAudioCodecUnsupported

	// Ошибки описания сессии
	ErrorCodeSDPInvalid

	// Ошибки устройства
	ErrorCodeDeviceFailure

	// Ошибки транспорта
	ErrorCodeTransportInactive
	ErrorCodeTransportFailed
	ErrorCodeRTPPacketInvalid
)

// String возвращает строковое представление кода ошибки
func (code MediaErrorCode) String() string {
	switch code {
	case ErrorCodeQueueClosed:
		return "QueueClosed"
	case ErrorCodeConfigInvalid:
		return "ConfigInvalid"
	case ErrorCodeAudioFrameInvalid:
		return "AudioFrameInvalid"
	case ErrorCodeAudioProcessingFailed:
		return "AudioProcessingFailed"
	case ErrorCodeAudioCodecUnsupported:
		return "AudioCodecUnsupported"
	case ErrorCodeSDPInvalid:
		return "SDPInvalid"
	case ErrorCodeDeviceFailure:
		return "DeviceFailure"
	case ErrorCodeTransportInactive:
		return "TransportInactive"
	case ErrorCodeTransportFailed:
		return "TransportFailed"
	case ErrorCodeRTPPacketInvalid:
		return "RTPPacketInvalid"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// MediaError ошибка с кодом, контекстом и обернутой причиной.
// errors.Is сравнивает MediaError по коду.
type MediaError struct {
	Code      MediaErrorCode
	Message   string
	SessionID string
	Context   map[string]interface{}
	Wrapped   error
}

// New создает ошибку без причины. Подходит для sentinel значений.
func New(code MediaErrorCode, message string) *MediaError {
	return &MediaError{Code: code, Message: message}
}

// Wrap оборачивает err в MediaError.
func Wrap(code MediaErrorCode, message string, err error) *MediaError {
	return &MediaError{Code: code, Message: message, Wrapped: err}
}

func (e *MediaError) Error() string {
	msg := e.Message
	if e.SessionID != "" {
		msg = fmt.Sprintf("сессия %s: %s", e.SessionID, msg)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *MediaError) Unwrap() error {
	return e.Wrapped
}

// Is поддерживает errors.Is, позволяя сравнивать ошибки по коду.
func (e *MediaError) Is(target error) bool {
	if t, ok := target.(*MediaError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext добавляет пару ключ-значение и возвращает ту же ошибку.
func (e *MediaError) WithContext(key string, value interface{}) *MediaError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSession привязывает ошибку к сессии.
func (e *MediaError) WithSession(sessionID string) *MediaError {
	e.SessionID = sessionID
	return e
}

// GetContext возвращает значение из контекста ошибки по ключу.
func (e *MediaError) GetContext(key string) interface{} {
	if e.Context == nil {
		return nil
	}
	return e.Context[key]
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code MediaErrorCode) bool {
	var mediaErr *MediaError
	for errors.As(err, &mediaErr) {
		if mediaErr.Code == code {
			return true
		}
		err = mediaErr.Wrapped
	}
	return false
}

// IsRecoverableError определяет, можно ли повторить операцию после ошибки
func IsRecoverableError(err error) bool {
	var mediaErr *MediaError
	if !errors.As(err, &mediaErr) {
		return false
	}

	switch mediaErr.Code {
	case ErrorCodeDeviceFailure, ErrorCodeAudioProcessingFailed, ErrorCodeTransportFailed:
		return true
	default:
		return false
	}
}
