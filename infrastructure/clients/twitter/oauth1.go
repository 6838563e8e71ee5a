package twitter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer produces OAuth1.0a HMAC-SHA1 Authorization headers. Every call gets
// a fresh nonce and timestamp; signatures are never reused. Nonce and Clock
// are injectable so signature generation is a pure function under test.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string
	Nonce          func() string
	Clock          func() time.Time
}

func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Nonce:          randomNonce,
		Clock:          time.Now,
	}
}

func randomNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// AuthorizationHeader signs method+rawURL+extra and returns the
// `OAuth ...` header value. extra carries protocol parameters that are part
// of the signature but live outside the query string (oauth_callback,
// oauth_verifier). Query parameters on rawURL are included automatically.
// tokenSecret is empty for the request-token leg.
func (s *Signer) AuthorizationHeader(method, rawURL string, extra url.Values, token, tokenSecret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url for signing: %w", err)
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.Nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.Clock().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for k, vs := range extra {
		if len(vs) > 0 {
			oauthParams[k] = vs[0]
		}
	}

	// All parameters participating in the signature: oauth params plus the
	// request query string.
	signed := url.Values{}
	for k, v := range oauthParams {
		signed.Set(k, v)
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}

	baseURL := u.Scheme + "://" + u.Host + u.EscapedPath()
	base := signatureBase(method, baseURL, signed)
	oauthParams["oauth_signature"] = sign(base, s.ConsumerSecret, tokenSecret)

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(pairs, ", "), nil
}

// signatureBase builds METHOD&encode(baseURL)&encode(sortedParams) per
// RFC 5849 §3.4.1.
func signatureBase(method, baseURL string, params url.Values) string {
	type kv struct{ k, v string }
	encoded := make([]kv, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			encoded = append(encoded, kv{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i].k != encoded[j].k {
			return encoded[i].k < encoded[j].k
		}
		return encoded[i].v < encoded[j].v
	})
	pairs := make([]string, 0, len(encoded))
	for _, p := range encoded {
		pairs = append(pairs, p.k+"="+p.v)
	}
	paramString := strings.Join(pairs, "&")
	return strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramString)
}

// sign computes base64(HMAC-SHA1(base)) keyed by
// encode(consumerSecret)&encode(tokenSecret).
func sign(base, consumerSecret, tokenSecret string) string {
	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 3986 encoding as required by RFC 5849 §3.6
// (url.QueryEscape differs on space and a few reserved characters).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
