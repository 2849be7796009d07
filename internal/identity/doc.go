// Package identity tracks the signed-in user and performs OAuth2 sign-in.
//
// [Gate] is handed to the components that need to know who is signed in. Observers registered with
// [Gate.Observe] receive the current user immediately and again on every change, so nothing has to
// poll or read global state.
//
// [OAuthFlow] runs the authorization code flow against the configured provider: it serves the
// callback on a local [server.Server], opens the consent page with [shared.OpenBrowser], exchanges
// the code and reads the provider's userinfo endpoint. Account creation happens at the provider.
package identity
