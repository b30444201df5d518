// Package campaign implements the account campaign state machine.
//
// The service owns the campaign lifecycle (active, paused, completed,
// cancelled), contact selection, channel escalation, message composition and
// touchpoint execution. It depends on the repository interface defined in
// this package and never imports from api/ or worker/.
//
// Public operations return structured result types rather than raising:
// validation failures, unknown campaigns and conflict pauses are business
// outcomes, not errors. Collaborator failures (persistence, sending,
// response lookup) are logged and swallowed so outreach never blocks on an
// infra hiccup.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package campaign
