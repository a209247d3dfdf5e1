// Package auth provides bearer token authentication with server side
// revocation: HS256 token issuance, a per request authentication
// middleware for fiber, logout backed by a RevocationStore, and the
// login/signup flows that issue tokens.
//
// Tokens:
//   - TokenService signs tokens whose subject is the account email and whose
//     jti identifies the token for revocation. Parse verifies the signature
//     before the time bound claims and reports MALFORMED_TOKEN,
//     INVALID_SIGNATURE, TOKEN_EXPIRED or UNSUPPORTED_FORMAT.
//
// Revocation:
//   - RevocationStore holds revoked jti values until the token would have
//     expired anyway. Revoking twice is a no-op. The repository package
//     provides SQL and redis stores, CachedRevocationStore keeps positive
//     answers in an LRU.
//   - The middleware fails closed: when the store cannot answer, the request
//     carries no identity.
//
// Middleware:
//   - RouteAuthenticator.Middleware never rejects a request. It attaches a
//     Principal to fiber locals and the request context when the token is
//     valid, not revoked and its subject resolves. ProtectedRoute turns a
//     missing Principal into AUTHENTICATION_REQUIRED.
//
// Activity sinks:
//   - ActivitySink receives login, logout, signup and profile events. Sinks
//     run best-effort (errors are logged) so metrics or audit trails never
//     block authentication.
package auth
