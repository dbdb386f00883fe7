package ports

import "github.com/bft-labs/modeswitch/pkg/log"

// Logger is the structured logger the application layer depends on.
type Logger = log.Logger

// Field is a structured logging key-value pair.
type Field = log.Field

// Field constructors, re-exported so app code imports only ports.
var (
	String   = log.String
	Strings  = log.Strings
	Stringer = log.Stringer
	Int      = log.Int
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
