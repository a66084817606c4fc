package domain

import (
	"errors"
	"strings"
)

// ErrorKind is the closed set of generation failures.
type ErrorKind string

const (
	KindCredentialMissing ErrorKind = "credential_missing"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindNoImageProduced   ErrorKind = "no_image_produced"
	KindTransport         ErrorKind = "transport"
)

// Error is a generation failure. Msg is the user-facing text.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrCredentialMissing = &Error{Kind: KindCredentialMissing, Msg: "La clé API n'est pas configurée. Veuillez vérifier votre environnement."}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse, Msg: "Réponse vide de l'oracle."}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse, Msg: "Réponse illisible de l'oracle."}
	ErrNoImageProduced   = &Error{Kind: KindNoImageProduced, Msg: "Impossible de générer l'image de la carte."}
	ErrTransport         = &Error{Kind: KindTransport, Msg: "Le service de génération est injoignable."}
)

// Session-level rejections. They never reach the UI as error banners.
var (
	ErrBusy        = errors.New("a draw or edit is already in flight")
	ErrNoImage     = errors.New("no image to edit")
	ErrEmptyPrompt = errors.New("edit prompt is empty")
	ErrNoReading   = errors.New("no reading to illustrate")
)

const (
	// EditFailurePrefix is prepended to every failed edit message.
	EditFailurePrefix = "Impossible de modifier l'image: "
	// FallbackMessage is shown when an error carries no text.
	FallbackMessage = "Une erreur mystique est survenue."
)

// NewError builds a kind-tagged error that wraps cause.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Transport wraps a failed remote call. The cause's own text is kept so the
// user sees what went wrong; ErrTransport's text stands in when it has none.
func Transport(cause error) *Error {
	msg := ErrTransport.Msg
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		msg = cause.Error()
	}
	return NewError(KindTransport, msg, cause)
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message turns err into the flat string stored in the session state.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}
