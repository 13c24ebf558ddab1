/*
Package oidc fetches OpenID Connect discovery documents.

Providers expose their metadata at a well-known URL derived from the
issuer:

	https://issuer.example.com/.well-known/openid-configuration

Only the fields the key set loaders need are decoded: the issuer
identifier and the jwks_uri. See OpenID Connect Discovery 1.0,
https://openid.net/specs/openid-connect-discovery-1_0.html.
*/
package oidc
