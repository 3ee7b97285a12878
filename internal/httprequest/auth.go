package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/icholy/digest"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// requestAuth is the resolved authentication of one item. Schemes that only
// add fields are applied to the RequestOptions directly; challenge based and
// signing schemes wrap the transport instead.
type requestAuth struct {
	predefined string
	wrap       func(ctx context.Context, base http.RoundTripper) http.RoundTripper
	secrets    []string
	// query holds credential query fields. They are re-applied when
	// pagination replaces the query of a request.
	query map[string]any
}

func (a *requestAuth) setQuery(opts *RequestOptions, name string, value any) {
	if opts.Query == nil {
		opts.Query = map[string]any{}
	}
	opts.Query[name] = value
	if a.query == nil {
		a.query = map[string]any{}
	}
	a.query[name] = value
}

func (e *Executor) resolveAuth(ctx context.Context, host Host, d *Descriptor, opts *RequestOptions, itemIndex int) (*requestAuth, error) {
	switch d.Authentication {
	case AuthPredefined:
		return &requestAuth{predefined: d.NodeCredentialType}, nil
	case AuthGeneric:
	default:
		return &requestAuth{}, nil
	}

	creds, err := host.GetCredentials(ctx, string(d.GenericAuthType), itemIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s credentials [item %d]: %w", d.GenericAuthType, itemIndex, err)
	}
	auth := &requestAuth{}

	switch d.GenericAuthType {
	case GenericBasic:
		opts.basicAuth = &[2]string{creds["user"], creds["password"]}
		auth.secrets = append(auth.secrets, creds["password"])

	case GenericDigest:
		user, password := creds["user"], creds["password"]
		auth.secrets = append(auth.secrets, password)
		auth.wrap = func(_ context.Context, base http.RoundTripper) http.RoundTripper {
			return &digest.Transport{Username: user, Password: password, Transport: base}
		}

	case GenericHeader:
		if creds["name"] == "" {
			return nil, configErr("credentials.name", itemIndex, "header auth credential has no header name")
		}
		opts.setHeader(creds["name"], creds["value"])
		auth.secrets = append(auth.secrets, creds["value"])

	case GenericQuery:
		if creds["name"] == "" {
			return nil, configErr("credentials.name", itemIndex, "query auth credential has no parameter name")
		}
		auth.setQuery(opts, creds["name"], creds["value"])
		auth.secrets = append(auth.secrets, creds["value"])

	case GenericCustom:
		secrets, err := applyCustomAuth(opts, auth, creds["json"], itemIndex)
		if err != nil {
			return nil, err
		}
		auth.secrets = append(auth.secrets, secrets...)

	case GenericOAuth1:
		auth.secrets = append(auth.secrets, creds["consumerSecret"], creds["oauthTokenSecret"], creds["oauthToken"])
		auth.wrap = oauth1Wrapper(creds)

	case GenericOAuth2:
		auth.secrets = append(auth.secrets, creds["clientSecret"], creds["accessToken"], creds["refreshToken"])
		source, err := e.oauth2Source(creds, itemIndex)
		if err != nil {
			return nil, err
		}
		auth.wrap = func(ctx context.Context, base http.RoundTripper) http.RoundTripper {
			return &oauth2.Transport{Source: source(ctx, base), Base: base}
		}
	}
	return auth, nil
}

// applyCustomAuth merges a {"headers":{},"qs":{},"body":{}} credential into opts.
func applyCustomAuth(opts *RequestOptions, auth *requestAuth, raw string, itemIndex int) ([]string, error) {
	var custom struct {
		Headers map[string]any `json:"headers"`
		Query   map[string]any `json:"qs"`
		Body    map[string]any `json:"body"`
	}
	if strings.TrimSpace(raw) == "" {
		return nil, configErr("credentials.json", itemIndex, "custom auth credential is empty")
	}
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		return nil, configErr("credentials.json", itemIndex, "custom auth credential needs to be valid JSON")
	}

	var secrets []string
	for k, v := range custom.Headers {
		s := stringify(v)
		opts.setHeader(k, s)
		secrets = append(secrets, s)
	}
	for k, v := range custom.Query {
		auth.setQuery(opts, k, v)
		secrets = append(secrets, stringify(v))
	}
	for k, v := range custom.Body {
		if err := opts.setBodyField(k, v); err != nil {
			return nil, configErr("credentials.json", itemIndex, err.Error())
		}
		secrets = append(secrets, stringify(v))
	}
	return secrets, nil
}

func oauth1Wrapper(creds Credentials) func(context.Context, http.RoundTripper) http.RoundTripper {
	config := oauth1.NewConfig(creds["consumerKey"], creds["consumerSecret"])
	if strings.EqualFold(creds["signatureMethod"], "HMAC-SHA256") {
		config.Signer = &oauth1.HMAC256Signer{ConsumerSecret: creds["consumerSecret"]}
	}
	token := oauth1.NewToken(creds["oauthToken"], creds["oauthTokenSecret"])
	return func(ctx context.Context, base http.RoundTripper) http.RoundTripper {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, &http.Client{Transport: base})
		return config.Client(ctx, token).Transport
	}
}

type tokenSourceFunc func(ctx context.Context, base http.RoundTripper) oauth2.TokenSource

// oauth2Source returns a token source shared by every request using the same
// credential, so client credential tokens are fetched once per expiry.
func (e *Executor) oauth2Source(creds Credentials, itemIndex int) (tokenSourceFunc, error) {
	tokenURL := creds["accessTokenUrl"]
	var scopes []string
	if s := strings.TrimSpace(creds["scope"]); s != "" {
		scopes = strings.Fields(strings.ReplaceAll(s, ",", " "))
	}
	authStyle := oauth2.AuthStyleInHeader
	if creds["authentication"] == "body" {
		authStyle = oauth2.AuthStyleInParams
	}

	if creds["grantType"] == "clientCredentials" {
		if creds["clientId"] == "" || creds["clientSecret"] == "" || tokenURL == "" {
			return nil, configErr("credentials", itemIndex, "OAuth2 client credentials require clientId, clientSecret and accessTokenUrl")
		}
		cfg := &clientcredentials.Config{
			ClientID:     creds["clientId"],
			ClientSecret: creds["clientSecret"],
			TokenURL:     tokenURL,
			Scopes:       scopes,
			AuthStyle:    authStyle,
		}
		key := "cc|" + cfg.ClientID + "|" + tokenURL + "|" + strings.Join(scopes, " ")
		return func(ctx context.Context, base http.RoundTripper) oauth2.TokenSource {
			return e.cachedTokenSource(key, func() oauth2.TokenSource {
				tctx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Transport: base})
				return cfg.TokenSource(tctx)
			})
		}, nil
	}

	if creds["accessToken"] == "" {
		return nil, configErr("credentials", itemIndex, "OAuth2 credential has no access token")
	}
	token := &oauth2.Token{
		AccessToken:  creds["accessToken"],
		TokenType:    creds["tokenType"],
		RefreshToken: creds["refreshToken"],
	}
	if exp := creds["expiresAt"]; exp != "" {
		if t, err := time.Parse(time.RFC3339, exp); err == nil {
			token.Expiry = t
		}
	}
	if token.RefreshToken == "" || tokenURL == "" {
		return func(context.Context, http.RoundTripper) oauth2.TokenSource {
			return oauth2.StaticTokenSource(token)
		}, nil
	}
	cfg := &oauth2.Config{
		ClientID:     creds["clientId"],
		ClientSecret: creds["clientSecret"],
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: authStyle},
		Scopes:       scopes,
	}
	key := "rt|" + cfg.ClientID + "|" + tokenURL + "|" + token.RefreshToken
	return func(ctx context.Context, base http.RoundTripper) oauth2.TokenSource {
		return e.cachedTokenSource(key, func() oauth2.TokenSource {
			tctx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Transport: base})
			return cfg.TokenSource(tctx, token)
		})
	}, nil
}

func (e *Executor) cachedTokenSource(key string, create func() oauth2.TokenSource) oauth2.TokenSource {
	if ts, ok := e.tokenSources.Load(key); ok {
		return ts.(oauth2.TokenSource)
	}
	ts, _ := e.tokenSources.LoadOrStore(key, oauth2.ReuseTokenSource(nil, create()))
	return ts.(oauth2.TokenSource)
}
