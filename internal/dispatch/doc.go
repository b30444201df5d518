// Package dispatch delivers composed touchpoint messages over their outreach
// channels. A Mux routes each touchpoint to the sender registered for its
// channel: email goes out through AWS SES, SMS and calls are posted to an
// external gateway over HTTP with retries, and unconfigured channels fall
// back to a log-only sender so campaigns keep progressing in development.
package dispatch
