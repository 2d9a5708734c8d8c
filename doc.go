// Package punchcard implements the account and credential core of the
// Punchcard workforce-tracking backend: password hashing, invitation
// provisioning, login resolution, and session issuance.
//
// Invitation lifecycle:
//   - Admins issue an invitation for a user through InvitationManager.Issue.
//     Issuing rotates the account's temporary password, stores a single-use
//     token with an expiry, and hands the credentials to a Mailer. A token is
//     consumed exactly once by Redeem, which sets the user's own password and
//     clears the token.
//   - Expiry is enforced lazily at validation time; there are no background
//     sweeps. An expired token is indistinguishable from an unknown one.
//
// Login resolution:
//   - Auther.Login matches the identifier against username first, then email.
//     While an invitation is open the account accepts either the invitation
//     token or the current password, and any session started in that window
//     carries a forced password change.
//
// Sessions are HS256 JWTs minted by TokenService and transported as HTTP-only
// cookies by RouteAuthenticator; middleware/sessionware gates protected
// routes.
package punchcard
