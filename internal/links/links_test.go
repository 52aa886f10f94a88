package links

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) (token string, exp int64, sig string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)

	token = strings.TrimPrefix(u.Path, "/download/")
	exp, err = strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	require.NoError(t, err)
	return token, exp, u.Query().Get("sig")
}

func TestIssueAndRedeemOnce(t *testing.T) {
	s := NewService("secret", "http://localhost:8080", time.Minute)

	link, ref := s.Issue("ws1", "res1")
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/download/"))
	assert.Equal(t, 1, s.Outstanding())

	token, exp, sig := parse(t, link)
	assert.Equal(t, ref.Token, token)

	got, err := s.Redeem(token, exp, sig)
	require.NoError(t, err)
	assert.Equal(t, "ws1", got.WorkspaceID)
	assert.Equal(t, "res1", got.ResultID)

	_, err = s.Redeem(token, exp, sig)
	assert.ErrorIs(t, err, ErrLinkNotFound, "references are single use")
}

func TestRedeemRejectsTamperedAndExpired(t *testing.T) {
	s := NewService("secret", "", time.Minute)
	link, _ := s.Issue("ws1", "res1")
	token, exp, sig := parse(t, link)

	_, err := s.Redeem(token, exp, "invalid")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.Redeem(token, exp+60, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.Redeem(token, 1, sig)
	assert.ErrorIs(t, err, ErrLinkExpired)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Redeem(token, exp, sig)
	assert.ErrorIs(t, err, ErrLinkExpired)
}

func TestRevokeResult(t *testing.T) {
	s := NewService("secret", "", time.Minute)
	first, _ := s.Issue("ws1", "res1")
	s.Issue("ws1", "res1")
	other, _ := s.Issue("ws2", "res2")

	assert.Equal(t, 2, s.RevokeResult("res1"))
	assert.Equal(t, 1, s.Outstanding())

	token, exp, sig := parse(t, first)
	_, err := s.Redeem(token, exp, sig)
	assert.ErrorIs(t, err, ErrLinkNotFound)

	token, exp, sig = parse(t, other)
	_, err = s.Redeem(token, exp, sig)
	assert.NoError(t, err)
}

func TestSignatureHelpers(t *testing.T) {
	signed := SignURL("/download/abc", 123, "k")
	sig := strings.SplitN(signed, "sig=", 2)[1]

	assert.True(t, ValidateSignature("/download/abc", 123, sig, "k"))
	assert.False(t, ValidateSignature("/download/abc", 123, sig, "other"))
	assert.False(t, ValidateSignature("/download/xyz", 123, sig, "k"))
}
