// Package cloud is the thin client for the remote lock API.
//
// Every call attaches the current bearer token (captured once per
// request from the live session), the bridge User-Agent, and gzip
// accept-encoding. The client retries nothing and refreshes nothing;
// failures surface to the caller, which decides whether they are
// transient (poll sites) or fatal (startup reconciliation).
//
// Responses arrive wrapped in a {"data": ...} envelope that the typed
// accessors unwrap.
package cloud
