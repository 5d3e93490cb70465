package acceptance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/prperemyshlev/guild-rejoin/internal/dto"
)

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *Suite) authorizeState() string {
	resp, err := noRedirectClient().Get(s.BaseURL + "/auth/discord")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	s.Require().NoError(err)
	s.Equal("identify email guilds.join", location.Query().Get("scope"))

	state := location.Query().Get("state")
	s.Require().NotEmpty(state)
	return state
}

func (s *Suite) callback(code, state string) *http.Response {
	query := url.Values{"code": {code}, "state": {state}}
	resp, err := http.Get(s.BaseURL + "/auth/callback?" + query.Encode())
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestOAuthCallback_StoresUserAndCredential() {
	state := s.authorizeState()

	resp := s.callback("valid-code", state)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body dto.AuthorizedResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("300000000000000001", body.ID)
	s.Equal("consenting", body.Username)

	ctx := context.Background()
	user, err := s.Repos.User.GetByID(ctx, "300000000000000001")
	s.Require().NoError(err)
	s.Require().NotNil(user.Email)
	s.Equal("consenting@example.com", *user.Email)

	credential, err := s.Repos.Credential.GetByUserID(ctx, "300000000000000001")
	s.Require().NoError(err)
	s.Equal("access-from-code", credential.AccessToken)
	s.Equal("refresh-from-code", credential.RefreshToken)
	s.ElementsMatch([]string{"identify", "email", "guilds.join"}, credential.Scopes)
}

func (s *Suite) TestOAuthCallback_StateReplayRejected() {
	state := s.authorizeState()

	first := s.callback("valid-code", state)
	first.Body.Close()
	s.Require().Equal(http.StatusOK, first.StatusCode)

	second := s.callback("valid-code", state)
	defer second.Body.Close()
	s.Equal(http.StatusBadRequest, second.StatusCode)
}

func (s *Suite) TestOAuthCallback_ForgedState() {
	resp := s.callback("valid-code", "not-a-signed-state")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestOAuthCallback_RejectedCode() {
	state := s.authorizeState()

	resp := s.callback("expired-code", state)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	_, err := s.Repos.User.GetByID(context.Background(), "300000000000000001")
	s.Error(err)
}

func (s *Suite) TestOAuthCallback_ConsentDenied() {
	resp, err := http.Get(s.BaseURL + "/auth/callback?error=access_denied")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
