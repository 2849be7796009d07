// Package server hosts the short-lived local HTTP listener that receives the OAuth redirect during
// `moodtunes auth login`.
//
// [BasicRouter] registers method patterns on an [http.ServeMux] and wraps every handler in its
// [Middleware] stack, last added outermost. [Logging] records each request at debug level.
//
// [OAuthHandler] is the redirect target. It refuses a mismatched state, exchanges the code with
// golang.org/x/oauth2, renders a result page for the browser, and publishes exactly one
// [OAuthResult] on its channel. A second callback is rejected.
//
// [Listen] binds the address before returning so callers can build the redirect URL from the real
// port, then serves in the background until [Server.Shutdown].
package server
