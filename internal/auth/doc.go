// Package auth manages the cloud session lifecycle for Halo Bridge.
//
// The Manager owns the path from cold start to an authenticated
// session: silent login from a stored credential file, interactive
// sign-in with the provider's custom challenge flow (a verification
// code delivered to the account's phone and collected through the
// challenge gateway), and a fixed-period refresh loop that keeps the
// bearer token current for the life of the process.
//
// The Session is the only shared object: the Manager writes it, the
// cloud client reads the bearer token from it.
package auth
