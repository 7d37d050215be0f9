// Package challenge serves the one-shot web form that collects the
// login verification code during interactive sign-in.
//
// The server implements auth.Gateway: codes flow to the auth manager
// as submissions, and the form handler blocks on each submission's
// verdict so the user sees the outcome of their own attempt.
package challenge
