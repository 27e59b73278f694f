package meta

import (
	"errors"

	"github.com/tliron/commonlog"
)

var (
	ErrSchema             = errors.New("metadata schema violation")
	ErrDuplicateObject    = errors.New("object already exists")
	ErrUnknownObject      = errors.New("object does not exist")
	ErrMalformedShorthand = errors.New("malformed property shorthand")
	ErrConflictingString  = errors.New("conflicting attributes for string")
	ErrDanglingReference  = errors.New("reference to missing object")
	ErrFrozen             = errors.New("document is frozen")
)

var log = commonlog.GetLogger("builtingen.meta")
