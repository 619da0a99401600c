package failure

import (
	"fmt"
	"strings"
)

const (
	msgInvalidCredentials = "Usuari o contrasenya incorrectes"
	msgForbidden          = "No tens permisos per fer aquesta operació"
	msgNotFound           = "No s'ha trobat el recurs sol·licitat"
	msgConflict           = "Ja existeix un registre amb aquestes dades"
	msgBadRequest         = "Dades invàlides"
	msgNetwork            = "No s'ha pogut connectar amb el servidor"
	msgUnknown            = "Error inesperat"
	msgAlreadyLoaned      = "L'exemplar ja està prestat"
)

var forbiddenByOp = map[Op]string{
	OpCreateLoan:     "Cal ser administrador per crear préstecs",
	OpReturnLoan:     "No tens permís per retornar aquest préstec",
	OpDeleteUser:     "No es pot eliminar aquest usuari",
	OpCreateUser:     "Cal ser administrador per crear usuaris",
	OpLoadUsers:      "Cal ser administrador per veure els usuaris",
	OpChangeStatus:   "Cal ser administrador per canviar l'estat de l'exemplar",
	OpDeleteExemplar: "Cal ser administrador per eliminar exemplars",
	OpLogout:         "La sessió ja no és vàlida",
}

var notFoundByOp = map[Op]string{
	OpCreateLoan:     "L'usuari o l'exemplar no existeix",
	OpReturnLoan:     "El préstec no existeix",
	OpGetUser:        "No s'ha trobat l'usuari",
	OpUpdateUser:     "No s'ha trobat l'usuari",
	OpDeleteUser:     "No s'ha trobat l'usuari",
	OpChangeStatus:   "No s'ha trobat l'exemplar",
	OpDeleteExemplar: "No s'ha trobat l'exemplar",
	OpDeleteBook:     "No s'ha trobat el llibre",
	OpDeleteAuthor:   "No s'ha trobat l'autor",
	OpDeleteGroup:    "No s'ha trobat el grup",
	OpMembers:        "No s'ha trobat el grup o l'usuari",
}

var unknownByOp = map[Op]string{
	OpCreateLoan: "No s'ha pogut crear el préstec",
	OpReturnLoan: "No s'ha pogut retornar el préstec",
	OpLogin:      "No s'ha pogut iniciar la sessió",
}

var fieldNames = map[Field]string{
	FieldNick:  "nick",
	FieldNif:   "NIF",
	FieldEmail: "email",
}

func messageFor(op Op, kind Kind, field Field, detail string) string {
	switch kind {
	case InvalidCredentials:
		return msgInvalidCredentials
	case Forbidden:
		if msg, ok := forbiddenByOp[op]; ok {
			return msg
		}
		return msgForbidden
	case NotFound:
		if msg, ok := notFoundByOp[op]; ok {
			return msg
		}
		return msgNotFound
	case Conflict:
		if field == FieldLoan {
			return msgAlreadyLoaned
		}
		if name, ok := fieldNames[field]; ok {
			return fmt.Sprintf("Aquest %s ja està registrat", name)
		}
		return msgConflict
	case BadRequest:
		return withDetail(msgBadRequest, detail)
	case Network:
		return msgNetwork
	}
	base := msgUnknown
	if msg, ok := unknownByOp[op]; ok {
		base = msg
	}
	return withDetail(base, detail)
}

func withDetail(base, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return base
	}
	return base + ": " + detail
}

// WithValue returns a copy of a conflict failure whose message names the
// duplicated value, e.g. `El nick "admin" ja està registrat`. When the
// backend did not say which field clashed, fallback is assumed.
func (f *Failure) WithValue(fallback Field, values map[Field]string) *Failure {
	if f == nil || f.Kind != Conflict || f.Field == FieldLoan {
		return f
	}
	field := f.Field
	if field == FieldNone {
		field = fallback
	}
	value := strings.TrimSpace(values[field])
	name, ok := fieldNames[field]
	if !ok || value == "" {
		return f
	}
	dup := *f
	dup.Field = field
	dup.Message = fmt.Sprintf("El %s %q ja està registrat", name, value)
	return &dup
}
