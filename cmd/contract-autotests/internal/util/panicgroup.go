package util

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stellar/go/support/log"
)

// UnrecoverablePanicGroup terminates the process after reporting a panic.
// It guards the long lived goroutines of the serve command.
var UnrecoverablePanicGroup = panicGroup{
	logPanicsToStdErr:  true,
	exitProcessOnPanic: true,
}

// RecoverablePanicGroup reports a panic and lets the process carry on. Case
// executions run in it.
var RecoverablePanicGroup = panicGroup{
	logPanicsToStdErr:  false,
	exitProcessOnPanic: false,
}

// PanicError is returned by Run when the function panicked.
type PanicError struct {
	Value     any
	CallStack []string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type panicGroup struct {
	log                *log.Entry
	logPanicsToStdErr  bool
	exitProcessOnPanic bool
	panicsCounter      prometheus.Counter
}

func (pg *panicGroup) Log(log *log.Entry) *panicGroup {
	return &panicGroup{
		log:                log,
		logPanicsToStdErr:  pg.logPanicsToStdErr,
		exitProcessOnPanic: pg.exitProcessOnPanic,
		panicsCounter:      pg.panicsCounter,
	}
}

func (pg *panicGroup) Counter(counter prometheus.Counter) *panicGroup {
	return &panicGroup{
		log:                pg.log,
		logPanicsToStdErr:  pg.logPanicsToStdErr,
		exitProcessOnPanic: pg.exitProcessOnPanic,
		panicsCounter:      counter,
	}
}

// Go spins a goroutine, with clear upfront definitions on what should be
// done in the case of an internal panic.
func (pg *panicGroup) Go(fn func()) {
	go func() {
		defer func() {
			if recoverRes := recover(); recoverRes != nil {
				pg.report(getPanicCallStack(recoverRes, fn, "(*panicGroup).Go"))
			}
		}()
		fn()
	}()
}

// Run calls fn on the current goroutine. A panic inside fn is reported like
// in Go and then returned as a *PanicError.
func (pg *panicGroup) Run(fn func() error) (err error) {
	defer func() {
		recoverRes := recover()
		if recoverRes == nil {
			return
		}
		cs := getPanicCallStack(recoverRes, fn, "(*panicGroup).Run")
		pg.report(cs)
		err = &PanicError{Value: recoverRes, CallStack: cs}
	}()
	return fn()
}

func (pg *panicGroup) report(cs []string) {
	if len(cs) <= 0 {
		return
	}
	if pg.log != nil {
		for _, line := range cs {
			pg.log.Warn(line)
		}
	}
	if pg.logPanicsToStdErr {
		for _, line := range cs {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if pg.panicsCounter != nil {
		pg.panicsCounter.Inc()
	}
	if pg.exitProcessOnPanic {
		os.Exit(1)
	}
}

func getPanicCallStack(recoverRes any, fn any, lastCallstackMethod string) (outCallStack []string) {
	functionName := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	return CallStack(recoverRes, functionName, lastCallstackMethod, 10)
}

// CallStack returns an array of strings representing the current call stack. The method is
// tuned for the purpose of panic handler, and used as a helper in contructing the list of entries we want
// to write to the log / stderr / telemetry.
func CallStack(recoverRes any, topLevelFunctionName string, lastCallstackMethod string, unwindStackLines int) (callStack []string) {
	if topLevelFunctionName != "" {
		callStack = append(callStack, fmt.Sprintf("%v when calling %v", recoverRes, topLevelFunctionName))
	} else {
		callStack = append(callStack, fmt.Sprintf("%v", recoverRes))
	}
	// while we're within the recover handler, the debug.Stack() would return the
	// call stack where the panic took place.
	callStackStrings := string(debug.Stack())
	for i, callStackLine := range strings.FieldsFunc(callStackStrings, func(r rune) bool { return r == '\n' || r == '\t' }) {
		// skip the first (unwindStackLines) entries, since these are the "debug.Stack()" entries, which aren't really useful.
		if i < unwindStackLines {
			continue
		}
		callStack = append(callStack, callStackLine)
		// once we reached the limiter entry, stop.
		if strings.Contains(callStackLine, lastCallstackMethod) {
			break
		}
	}
	return callStack
}
