// Package credential verifies the signed session tokens the login backend
// issues. Verification and claim extraction are one capability: a token
// either yields a [Claims] or an error wrapping [ErrVerification], so
// alternate signing schemes can be substituted behind the same surface in
// tests.
package credential
