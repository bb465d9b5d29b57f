// Package sip implements the call-control core of a SIP (RFC 3261) proxy:
// URI-set normalization, request validation, stateful/stateless routing
// decisions, the stateless relay's request/response rewriting, and the UAC
// client transaction state machine (RFC 3261 §17.1, extended per RFC 6026
// for INVITE transactions that must absorb forked 2xx responses).
//
// The package does not implement a transport, a UAS transaction machine, or
// dialog state; it is built to sit behind a transaction manager and a
// concrete [Transport] that a caller supplies.
package sip
