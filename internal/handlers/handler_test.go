package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latestcomment/ai-battle-arena/internal/models"
	"github.com/latestcomment/ai-battle-arena/internal/services"
	"github.com/latestcomment/ai-battle-arena/internal/storage"
)

type stubArena struct{}

func (stubArena) battle(status models.BattleStatus) *models.Battle {
	return &models.Battle{
		ID:     "b1",
		Status: status,
		Messages: []models.Message{
			{Role: "system", Content: "topic seed"},
			{Role: "assistant", Content: "openai opens"},
			{Role: "assistant", Content: "deepseek answers"},
		},
	}
}

func (a stubArena) CreateBattle(context.Context, string, int) (*models.Battle, error) {
	b := a.battle(models.StatusInProgress)
	b.Messages = b.Messages[:1]
	return b, nil
}

func (a stubArena) ProcessRound(context.Context, string) (*models.Battle, error) {
	return a.battle(models.StatusInProgress), nil
}

func (a stubArena) GetBattle(context.Context, string) (*models.Battle, error) {
	return a.battle(models.StatusCompleted), nil
}

func (stubArena) GetVotes(context.Context, string) (*models.VoteTally, error) {
	return &models.VoteTally{BattleID: "b1", VoteCounts: map[models.ParticipantID]int{}}, nil
}

func (stubArena) Vote(context.Context, string, models.Vote) (*models.VoteTally, error) {
	return &models.VoteTally{BattleID: "b1", VoteCounts: map[models.ParticipantID]int{models.ParticipantOpenAI: 1}}, nil
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "snapshots.json"))
	require.NoError(t, err)

	service := services.NewBattleService(models.NewSessionManager(), stubArena{}, store, 3, nil)
	app := fiber.New(fiber.Config{Views: html.New("../../static", ".html")})
	Register(app, NewHandler(service), NewWebSocketHandler(service))
	return app
}

func viewerCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == viewerCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", viewerCookie)
	return nil
}

func postForm(path string, form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func get(path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHealthz(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body(t, resp))
	assert.Empty(t, resp.Cookies())
}

func TestBattlePage_IssuesViewerCookie(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := viewerCookieFrom(t, resp)
	assert.NotEmpty(t, cookie.Value)

	page := body(t, resp)
	assert.Contains(t, page, "AI Battle Arena")
	assert.Contains(t, page, "Start Battle")
	assert.NotContains(t, page, "Next Round")
}

func TestStartBattle_RedirectsAndRenders(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	resp, err = app.Test(postForm("/battle", url.Values{"topic": {"tabs vs spaces"}}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err = app.Test(get("/", cookie), -1)
	require.NoError(t, err)
	page := body(t, resp)
	assert.Contains(t, page, "openai opens")
	assert.Contains(t, page, "deepseek answers")
	assert.Contains(t, page, "Next Round")
	assert.NotContains(t, page, "topic seed")

	resp, err = app.Test(get("/api/view", cookie), -1)
	require.NoError(t, err)
	var view models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.NotNil(t, view.Battle)
	assert.Equal(t, "b1", view.Battle.ID)
	require.Len(t, view.Left.Messages, 1)
	assert.Equal(t, "deepseek answers", view.Left.Messages[0].Content)
	require.Len(t, view.Right.Messages, 1)
	assert.Equal(t, "openai opens", view.Right.Messages[0].Content)
	assert.True(t, view.CanAdvance)
	assert.False(t, view.CanStart)
}

func TestGuardErrors(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	resp, err = app.Test(postForm("/battle", url.Values{"topic": {"  "}}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(postForm("/battle", url.Values{"topic": {"first"}}, cookie), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = app.Test(postForm("/battle", url.Values{"topic": {"second"}}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = app.Test(postForm("/battle/vote", url.Values{
		"battle_id":        {"b1"},
		"chosen_ai":        {"gemini"},
		"twitter_username": {"alice"},
	}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(postForm("/battle/round", url.Values{}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(postForm("/battle/round", url.Values{"battle_id": {"old-battle"}}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVote_WithoutBattleIsRefused(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	resp, err = app.Test(postForm("/battle/vote", url.Values{
		"battle_id":        {"someone-elses-battle"},
		"chosen_ai":        {"openai"},
		"twitter_username": {"alice"},
	}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(get("/api/view", cookie), -1)
	require.NoError(t, err)
	var view models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Nil(t, view.Battle)
}

func TestStartControls(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	page := body(t, resp)
	assert.Contains(t, page, `name="topic" required`)
	assert.NotContains(t, page, `value="" disabled`)
	assert.Contains(t, page, "Start Battle")

	_, err = app.Test(postForm("/battle", url.Values{"topic": {"first"}}, cookie), -1)
	require.NoError(t, err)

	resp, err = app.Test(get("/", cookie), -1)
	require.NoError(t, err)
	page = body(t, resp)
	assert.Contains(t, page, `value="first" disabled`)
	assert.NotContains(t, page, "Start Battle")
}

func TestFormValuesOutliveTheRequest(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	_, err = app.Test(postForm("/battle", url.Values{"topic": {"tabs vs spaces"}}, cookie), -1)
	require.NoError(t, err)

	filler := strings.Repeat("x", len("tabs vs spaces"))
	for i := 0; i < 20; i++ {
		_, err = app.Test(postForm("/battle", url.Values{"topic": {filler}}, cookie), -1)
		require.NoError(t, err)
	}

	resp, err = app.Test(get("/api/view", cookie), -1)
	require.NoError(t, err)
	var view models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "tabs vs spaces", view.Topic)
}

func TestVote_ShowsWinnerAndTally(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	_, err = app.Test(postForm("/battle", url.Values{"topic": {"first"}}, cookie), -1)
	require.NoError(t, err)

	resp, err = app.Test(postForm("/battle/vote", url.Values{
		"battle_id":        {"b1"},
		"chosen_ai":        {"openai"},
		"twitter_username": {"@alice"},
	}, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = app.Test(get("/", cookie), -1)
	require.NoError(t, err)
	page := body(t, resp)
	assert.Contains(t, page, "Battle Complete!")
	assert.Contains(t, page, "Pending Votes")
	assert.Contains(t, page, "OpenAI Votes")
	assert.Contains(t, page, `value="@alice"`)
}

func TestReset(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/", nil), -1)
	require.NoError(t, err)
	cookie := viewerCookieFrom(t, resp)

	_, err = app.Test(postForm("/battle", url.Values{"topic": {"first"}}, cookie), -1)
	require.NoError(t, err)

	resp, err = app.Test(postForm("/battle/reset", nil, cookie), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = app.Test(get("/api/view", cookie), -1)
	require.NoError(t, err)
	var view models.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Nil(t, view.Battle)
	assert.True(t, view.CanStart)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(get("/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
