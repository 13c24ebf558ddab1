/*
Package jwks loads, caches and rotates JSON Web Key Sets for JWT
validation.

A Loader serves the verification keys of one issuer. It resolves its key
source either from a direct JWKS URL or through OIDC discovery, fetches
the document with conditional requests, and keeps the keys fresh with a
periodic background refresh. Rotated-out key sets stay available for a
configurable grace period so tokens signed moments before a rotation
still verify.

# Basic usage

	loader, err := jwks.New(
	    jwks.WithIssuerURL("https://auth.example.com/"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer loader.Close()

	status := <-loader.Initialize(ctx, nil)
	if status != jwks.StatusOK {
	    log.Fatalf("keys not loaded: %s", status)
	}

	info, ok := loader.GetKeyInfo("key-id-from-token-header")

GetKeyInfo never blocks on the network; it answers from the active key
set and, within the rotation grace period, from retired ones. The
LoaderStatus reported by Status tells callers whether an empty lookup
means "unknown key" or "no keys loaded yet".

# Sources

Exactly one source is configured per loader:

  - WithJWKSURL points straight at a key set document.
  - WithIssuerURL derives the discovery document URL from the issuer's
    well-known path and resolves jwks_uri from it.
  - WithDiscoveryURL uses an explicit discovery document URL.

For discovery sources a configured WithIssuer wins over the issuer the
document declares; a difference between the two is reported to the
events.Recorder passed to Initialize.

# Refresh and rotation

With a non-zero refresh interval a background task re-fetches the
document periodically. Unchanged content, detected via ETag or byte
comparison, changes nothing and keeps the same KeySet instance. Changed
content atomically swaps the active set and retires the old one with the
swap timestamp. Fetch failures leave the last good keys in place and
never downgrade a loader that is already serving keys.

# Caching across loaders

Each loader owns a private content Cache by default. Processes serving
many issuers can bound total memory by sharing one:

	shared := jwks.NewCache(500)
	a, _ := jwks.New(jwks.WithIssuerURL(issuerA), jwks.WithSharedCache(shared))
	b, _ := jwks.New(jwks.WithIssuerURL(issuerB), jwks.WithSharedCache(shared))

The Registry builds on this to create and dispose loaders on demand for
dynamic issuer populations.
*/
package jwks
