// Package dispatch routes a scheduled-rule trigger to one ingestion routine.
//
// A Handler receives a trigger event, extracts the rule name from the first
// resource identifier, resolves it against the closed set of known rules and
// builds an Executor for the invocation. Building an Executor loads the
// secret bundle on a best-effort basis: a credential that fails to load is
// logged and carried as a failed value, and the routine that needs it fails
// with a *secrets.ProvisioningError when it asks for it.
//
// Error handling:
//   - Missing or empty resources → *trigger.InvalidEventError
//   - Resource without "rule/<name>" → *trigger.MalformedRuleArnError
//   - Rule name outside the known set → *UnknownFunctionError
//   - Routine failure → the routine's error, unchanged
//
// Every failure becomes a 500 response carrying the error message; success is
// a 200 with a fixed message. There is no retry: the scheduler fires again on
// its next interval.
package dispatch
