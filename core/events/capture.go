package events

const (
	// KindCaptureStarted identifies microphone capture start.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureStopped identifies microphone capture stop.
	KindCaptureStopped Kind = "capture.stopped"
	// KindCaptureFailed identifies capture pipeline failure.
	KindCaptureFailed Kind = "capture.failed"
)

// CaptureStarted marks the start of microphone capture.
type CaptureStarted struct{ Base }

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted() CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted)}
}

// CaptureStopped marks the end of microphone capture.
type CaptureStopped struct{ Base }

// NewCaptureStopped creates a capture stopped event.
func NewCaptureStopped() CaptureStopped {
	return CaptureStopped{Base: NewBase(KindCaptureStopped)}
}

// CaptureFailed marks a capture pipeline failure.
type CaptureFailed struct {
	Base
	Error string
}

// NewCaptureFailed creates a capture failed event.
func NewCaptureFailed(err string) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), Error: err}
}
