// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_reply.*
//   - tool_call.*
//   - assistant_playback.*
//   - action.*
//   - capture.*
//   - turn_state.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Segment: append-only text piece emitted in stream order.
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text/state for the current stream/turn phase.
//
// user_input events cover everything derived from the microphone: raw
// frames, loudness samples, voice activity boundaries, and the interim,
// segment, and final transcript stages.
//
// assistant_reply events mirror the backend reply stream: started, text
// segments, synthesized audio frames, and the final or failed terminal
// event.
//
// tool_call events report backend tool executions observed on the reply
// stream. They are informational; tools run server-side.
//
// assistant_playback events track the local speaker: playback start, the
// drained milestone once every queued chunk finished, and flushes caused
// by barge-in.
//
// action events track side-effecting backend actions that need explicit
// user confirmation before they execute.
//
// turn_state events bracket one user turn from submission to completion
// or failure.
package events
