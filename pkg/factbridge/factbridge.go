// Package factbridge re-exports the supported surface of the internal
// packages so external programs can declare schemas, open sessions, and
// query relations without reaching into internal/.
package factbridge

import (
	"factbridge/internal/codec"
	"factbridge/internal/engine"
	"factbridge/internal/schema"
	"factbridge/internal/session"
	"factbridge/internal/store"
)

// Schema surface.
type FieldType = schema.FieldType
type Direction = schema.Direction
type Field = schema.Field
type FactKind = schema.FactKind
type Program = schema.Program
type UnknownFactError = schema.UnknownFactError

const (
	Symbol   = schema.Symbol
	Number   = schema.Number
	Unsigned = schema.Unsigned
	Float    = schema.Float

	Input  = schema.Input
	Output = schema.Output
	InOut  = schema.InOut
)

var (
	Declare        = schema.Declare
	NewKind        = schema.NewKind
	LoadKinds      = schema.LoadKinds
	ParseFieldType = schema.ParseFieldType
	ParseDirection = schema.ParseDirection

	ErrUnknownFact = schema.ErrUnknownFact
)

// Codec surface.
type Tuple = codec.Tuple
type Fact = codec.Fact
type SchemaMismatchError = codec.SchemaMismatchError

var (
	Encode    = codec.Encode
	Decode    = codec.Decode
	Marshal   = codec.Marshal
	Unmarshal = codec.Unmarshal

	ErrSchemaMismatch = codec.ErrSchemaMismatch
)

// Engine surface.
type Mode = engine.Mode
type NotFoundError = engine.NotFoundError
type SourceWatcher = engine.SourceWatcher

const (
	Interpreted = engine.Interpreted
	Compiled    = engine.Compiled
)

var (
	ParseMode        = engine.ParseMode
	NewSourceWatcher = engine.NewSourceWatcher

	ErrEngineNotFound = engine.ErrEngineNotFound
)

// Session surface.
type Session = session.Session
type Options = session.Options
type State = session.State
type RelationSnapshot = session.RelationSnapshot
type InvalidStateError = session.InvalidStateError

const (
	StateUninitialized = session.StateUninitialized
	StateInitializing  = session.StateInitializing
	StateReady         = session.StateReady
	StateRunning       = session.StateRunning
	StateShutDown      = session.StateShutDown
)

var (
	NewSession = session.New

	ErrInvalidState = session.ErrInvalidState
)

// Store surface.
type Store = store.Store

var OpenStore = store.Open
