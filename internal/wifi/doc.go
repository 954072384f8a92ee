// Package wifi switches the managed interface between access point and
// station mode and owns the saved-network operations.
//
// A [Manager] serializes every operation on one mutex. Each transition is a
// fixed pipeline of steps (config writes, link down/up, service restarts,
// supplicant reconfigure) whose outcomes are collected in a [Report], logged,
// counted in metrics and written to the audit log.
//
// Config writes and link changes always abort a pipeline. Service restarts
// and the supplicant reconfigure follow the [FailurePolicy]: with
// [PolicyContinue] a non-zero exit is logged and the pipeline goes on, with
// [PolicyAbort] it stops. A command that could not run at all is always fatal.
package wifi
