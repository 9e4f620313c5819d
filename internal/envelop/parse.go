package envelop

import (
	"errors"
	"maps"

	language "github.com/hanpama/envelop/internal/language"
)

// ParseFunc parses a query document.
type ParseFunc func(source string, opts language.ParseOptions) (*language.QueryDocument, error)

var errParseFailed = errors.New("failed to parse document")

type ParseParams struct {
	Source  string
	Options language.ParseOptions
}

// ParseEvent is shared by every parse hook of one call.
type ParseEvent struct {
	Context Context
	Params  ParseParams
	ParseFn ParseFunc

	document *language.QueryDocument
}

// ExtendContext adds ext to the request context in place.
func (e *ParseEvent) ExtendContext(ext Context) { maps.Copy(e.Context, ext) }

// SetParseFn replaces the parser used for this call.
func (e *ParseEvent) SetParseFn(fn ParseFunc) { e.ParseFn = fn }

// SetParsedDocument skips parsing and uses doc as the result.
func (e *ParseEvent) SetParsedDocument(doc *language.QueryDocument) { e.document = doc }

// AfterParseFunc observes the outcome of parsing.
type AfterParseFunc func(e *AfterParseEvent)

type AfterParseEvent struct {
	Context Context
	Result  *language.QueryDocument
	Err     error
}

func (e *AfterParseEvent) ExtendContext(ext Context) { maps.Copy(e.Context, ext) }

// ReplaceParseResult overrides both the document and the error.
func (e *AfterParseEvent) ReplaceParseResult(doc *language.QueryDocument, err error) {
	e.Result, e.Err = doc, err
}

func (o *composed) parse(initial Context) ParseFunc {
	if len(o.hooks.parse) == 0 {
		return language.ParseQuery
	}
	return func(source string, opts language.ParseOptions) (*language.QueryDocument, error) {
		ev := &ParseEvent{
			Context: initial,
			Params:  ParseParams{Source: source, Options: opts},
			ParseFn: language.ParseQuery,
		}
		var afters []AfterParseFunc
		for _, hook := range o.hooks.parse {
			if after := hook(ev); after != nil {
				afters = append(afters, after)
			}
		}

		done := &AfterParseEvent{Context: initial, Result: ev.document}
		if ev.document == nil {
			done.Result, done.Err = ev.ParseFn(source, opts)
		}
		for _, after := range afters {
			after(done)
		}

		if done.Err != nil {
			return nil, done.Err
		}
		if done.Result == nil {
			return nil, errParseFailed
		}
		return done.Result, nil
	}
}
