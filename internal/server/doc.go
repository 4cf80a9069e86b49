// Package server runs the temporary local HTTP server that completes the Spotify authorization
// code flow for the CLI.
//
// # Router
//
// [BasicRouter] implements [Router] over [http.ServeMux] with a middleware stack. [NewCallbackRouter]
// installs chi's RequestID and Recoverer middleware plus [RequestLogger].
//
// # Callback
//
// [CallbackHandler] serves [CallbackPath] and [DonePath]. Requests with a foreign state are turned
// away without ending the login. The first callback carrying the expected state is the only one
// processed, and its code is handed to a [LoginFunc] exactly once. On
// success the browser is redirected to [DonePath], which renders the confirmation page, so a reload
// never resubmits the code. The outcome is delivered once on [CallbackHandler.Result].
package server
