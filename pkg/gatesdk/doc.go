/*
Package gatesdk is a small client for the oidcgate HTTP surface and holds the
JSON shapes that surface returns.

The SDKClient behaves like a browser: it keeps the session cookie in a
cookie jar and does not follow redirects, so callers can inspect the
Location the gate chose.

	client := gatesdk.NewSDKClient("http://localhost:8080")

	res, err := client.Authorize(ctx, gatesdk.AuthorizeParams{
		ClientID:    "c1",
		RedirectURI: "https://rp.example/cb",
		Prompt:      []string{"none"},
	})
	if res.Location != "" {
		// error=login_required went back to the relying party
	}

	_, err = client.Login(ctx, "alice", "secret", "")
*/
package gatesdk
