// Package auth validates the bearer tokens presented to the API.
//
// SceneSync does not manage users: tokens are issued by the site's
// identity service and verified here against a shared HS256 secret.
// Token issuance exists only for local tooling and tests.
package auth
