package plugins

import (
	"context"

	"github.com/rs/zerolog"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
)

// LogData is what UseLogger reports with each event. Result is nil for the
// start events.
type LogData struct {
	Args   executor.ExecutionArgs
	Result *executor.Response
}

// LogFunc receives execute-start, execute-end, subscribe-start and
// subscribe-end events.
type LogFunc func(event string, data LogData)

type LoggerOptions struct {
	LogFn LogFunc
	// Logger backs the default LogFn. Nil uses a disabled logger.
	Logger *zerolog.Logger
	// SkipIntrospection marks introspection operations while parsing and
	// leaves them out of the log.
	SkipIntrospection bool
}

// UseLogger reports the start and end of every execution and subscription.
func UseLogger(opts LoggerOptions) envelop.Plugin {
	logFn := opts.LogFn
	if logFn == nil {
		logFn = zerologLogFunc(loggerOrNop(opts.Logger))
	}

	hooks := &envelop.Hooks{
		OnExecute: func(_ context.Context, e *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
			if isIntrospection(e.Args.ContextValue) {
				return nil, nil
			}
			args := e.Args
			logFn("execute-start", LogData{Args: args})
			return &envelop.OnExecuteHooks{OnExecuteDone: func(_ context.Context, done *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
				result := done.Result
				logFn("execute-end", LogData{Args: args, Result: &result})
				return nil, nil
			}}, nil
		},
		OnSubscribe: func(_ context.Context, e *envelop.SubscribeEvent) (*envelop.OnSubscribeHooks, error) {
			if isIntrospection(e.Args.ContextValue) {
				return nil, nil
			}
			args := e.Args
			logFn("subscribe-start", LogData{Args: args})
			return &envelop.OnSubscribeHooks{OnSubscribeResult: func(_ context.Context, done *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
				result := done.Result
				logFn("subscribe-end", LogData{Args: args, Result: &result})
				return nil, nil
			}}, nil
		},
	}
	if opts.SkipIntrospection {
		hooks.OnParse = markIntrospection
	}
	return hooks
}

func markIntrospection(e *envelop.ParseEvent) envelop.AfterParseFunc {
	if language.IsIntrospectionOperationString(e.Params.Source) {
		e.ExtendContext(envelop.Context{envelop.IsIntrospectionKey: true})
	}
	return nil
}

func isIntrospection(c map[string]any) bool {
	marked, _ := c[envelop.IsIntrospectionKey].(bool)
	return marked
}

func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

func zerologLogFunc(logger zerolog.Logger) LogFunc {
	return func(event string, data LogData) {
		ev := logger.Info().Str("operation", data.Args.OperationName)
		if data.Result != nil && data.Result.Result != nil {
			ev = ev.Int("errors", len(data.Result.Result.Errors))
		}
		ev.Msg(event)
	}
}
