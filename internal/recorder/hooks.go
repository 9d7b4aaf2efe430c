package recorder

// Processor receives the captured audio of a Recorder.
//
// OnStart runs on the goroutine calling Start, before capture begins;
// returning false aborts the start. OnProcessSamples runs on the capture
// goroutine; samples is only valid for the duration of the call and
// returning false stops the session. OnStop runs on the goroutine calling
// Stop once the capture goroutine has exited.
//
// Implementations must not call Recorder methods that change state from
// inside OnProcessSamples.
type Processor interface {
	OnStart() bool
	OnProcessSamples(samples []int16) bool
	OnStop()
}

// Hooks provides the default OnStart and OnStop. Embed it in a type that
// only needs OnProcessSamples.
type Hooks struct{}

func (Hooks) OnStart() bool { return true }

func (Hooks) OnStop() {}

// ProcessorFunc adapts a function to a Processor with default hooks.
type ProcessorFunc func(samples []int16) bool

func (f ProcessorFunc) OnStart() bool { return true }

func (f ProcessorFunc) OnProcessSamples(samples []int16) bool { return f(samples) }

func (f ProcessorFunc) OnStop() {}
