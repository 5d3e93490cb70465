package acceptance

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
)

func (s *Suite) seedUser(id, accessToken, refreshToken string, expiresAt time.Time) {
	ctx := context.Background()
	now := time.Now()

	s.Require().NoError(s.Repos.User.Upsert(ctx, &domain.User{
		ID:          id,
		Username:    "user-" + id,
		ConsentedAt: now,
		LastLoginAt: now,
	}))
	s.Require().NoError(s.Repos.Credential.Upsert(ctx, &domain.Credential{
		UserID:       id,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Scopes:       []string{"identify", "guilds.join"},
		ExpiresAt:    expiresAt,
		UpdatedAt:    now,
	}))
}

func (s *Suite) rejoin(query string) (*http.Response, dto.SummaryResponse) {
	resp := s.adminRequest(http.MethodPost, "/admin/rejoin?"+query)
	defer resp.Body.Close()

	var summary dto.SummaryResponse
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&summary))
	}
	return resp, summary
}

func (s *Suite) TestRejoin_MixedOutcomes() {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	s.seedUser("200000000000000001", "valid-token", "refresh-1", future)
	s.seedUser("200000000000000002", "stale-token", "refresh-2", past)
	s.seedUser("200000000000000003", "revoked-token", "refresh-3", future)
	s.seedUser("200000000000000004", "stale-token", "refresh-4", past)
	s.Discord.DenyRefresh("refresh-4")

	resp, summary := s.rejoin("guild_id=" + guildID)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.Equal(guildID, summary.GuildID)
	s.NotEmpty(summary.RunID)
	s.Equal(2, summary.OK)
	s.Equal(0, summary.Already)
	s.Equal(2, summary.Fail)
	s.Equal(4, summary.Total)
	s.Equal(1, s.Discord.Refreshes())

	// Refreshed credential is persisted
	credential, err := s.Repos.Credential.GetByUserID(context.Background(), "200000000000000002")
	s.Require().NoError(err)
	s.Equal("refreshed-refresh-2", credential.AccessToken)
	s.Equal("rotated-refresh-2", credential.RefreshToken)
	s.True(credential.ExpiresAt.After(time.Now()))

	// Denied credential is left untouched
	denied, err := s.Repos.Credential.GetByUserID(context.Background(), "200000000000000004")
	s.Require().NoError(err)
	s.Equal("refresh-4", denied.RefreshToken)

	runResp := s.adminRequest(http.MethodGet, "/admin/runs/"+summary.RunID)
	defer runResp.Body.Close()
	s.Require().Equal(http.StatusOK, runResp.StatusCode)

	var run dto.RunResponse
	s.Require().NoError(json.NewDecoder(runResp.Body).Decode(&run))
	s.Equal(summary.RunID, run.RunID)
	s.Require().Len(run.Attempts, 4)

	statuses := make(map[string]string)
	for _, attempt := range run.Attempts {
		statuses[attempt.UserID] = attempt.Status
		if attempt.Status == string(domain.OutcomeFailed) {
			s.Require().NotNil(attempt.Error)
			s.NotEmpty(*attempt.Error)
		}
	}
	s.Equal("joined", statuses["200000000000000001"])
	s.Equal("joined", statuses["200000000000000002"])
	s.Equal("failed", statuses["200000000000000003"])
	s.Equal("failed", statuses["200000000000000004"])
}

func (s *Suite) TestRejoin_SecondRunReportsAlreadyMembers() {
	future := time.Now().Add(time.Hour)
	s.seedUser("200000000000000001", "valid-token", "refresh-1", future)
	s.seedUser("200000000000000002", "valid-token", "refresh-2", future)

	resp, first := s.rejoin("guild_id=" + guildID)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(2, first.OK)

	resp, second := s.rejoin("guild_id=" + guildID)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(0, second.OK)
	s.Equal(2, second.Already)
	s.Equal(2, second.Total)
	s.NotEqual(first.RunID, second.RunID)
}

func (s *Suite) TestRejoin_NotifySendsWelcomeToNewMembersOnly() {
	future := time.Now().Add(time.Hour)
	s.seedUser("200000000000000001", "valid-token", "refresh-1", future)

	resp, _ := s.rejoin("guild_id=" + guildID + "&notify=true")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal([]string{"dm-200000000000000001:Welcome back!"}, s.Discord.Messages())

	resp, _ = s.rejoin("guild_id=" + guildID + "&notify=true")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Len(s.Discord.Messages(), 1)
}

func (s *Suite) TestRejoin_EmptyUserSet() {
	resp, summary := s.rejoin("guild_id=" + guildID)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(0, summary.Total)
}

func (s *Suite) TestRejoin_LockHeld() {
	ctx := context.Background()
	s.Require().NoError(s.Redis.Client.Set(ctx, "rejoin:lock:"+guildID, "other-run", time.Minute).Err())

	resp, _ := s.rejoin("guild_id=" + guildID)
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestRejoin_InvalidGuild() {
	resp, _ := s.rejoin("guild_id=not-a-guild")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRejoin_RequiresAPIKey() {
	resp, err := http.Post(s.BaseURL+"/admin/rejoin?guild_id="+guildID, "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetRun_NotFound() {
	resp := s.adminRequest(http.MethodGet, "/admin/runs/6f1c1d34-1f0a-4d8e-9c55-2b7b8f1b2a10")
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}
