package display

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fieldofplay"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/repository"
	"github.com/yourusername/fop-engine/internal/uievent"
)

type received struct {
	Type     string          `json:"type"`
	Platform string          `json:"platform"`
	Origin   string          `json:"origin"`
	Payload  json.RawMessage `json:"payload"`
}

func TestParseCommand(t *testing.T) {
	origin := eventbus.NewOrigin("display")
	athleteID := uuid.New()

	tests := []struct {
		name    string
		input   string
		want    fopevent.FOPEvent
		wantErr string
	}{
		{"time over", `{"type":"clientTimeOver"}`, fopevent.TimeOver{Envelope: eventbus.From(origin)}, ""},
		{"timer stopped", `{"type":"clientTimerStopped","remaining_ms":42500}`,
			fopevent.ClientTimerStopped{Envelope: eventbus.From(origin), Remaining: 42500 * time.Millisecond}, ""},
		{"time started", `{"type":"timeStarted"}`, fopevent.TimeStarted{Envelope: eventbus.From(origin)}, ""},
		{"down signal", `{"type":"downSignal"}`, fopevent.DownSignal{Envelope: eventbus.From(origin)}, ""},
		{"referee light", `{"type":"decisionUpdate","referee":3,"good":false}`,
			fopevent.DecisionUpdate{Envelope: eventbus.From(origin), Referee: 2, Good: false}, ""},
		{"all lights", `{"type":"decisionFullUpdate","referees":[true,null,false]}`,
			fopevent.DecisionFullUpdate{Envelope: eventbus.From(origin), Referees: [3]*bool{uievent.Bool(true), nil, uievent.Bool(false)}}, ""},
		{"weight change", `{"type":"weightChange","athlete":"` + athleteID.String() + `","attempt":2,"change":"change1","weight":67}`,
			fopevent.WeightChange{Envelope: eventbus.From(origin), Athlete: athleteID, Attempt: 2, Change: models.Change1, Weight: 67}, ""},
		{"referee out of range", `{"type":"decisionUpdate","referee":4,"good":true}`, nil, "referee must be"},
		{"light without decision", `{"type":"decisionUpdate","referee":1}`, nil, "without a decision"},
		{"negative time", `{"type":"clientTimerStopped","remaining_ms":-1}`, nil, "negative"},
		{"bad change kind", `{"type":"weightChange","athlete":"` + athleteID.String() + `","change":"change3"}`, nil, "change3"},
		{"change without athlete", `{"type":"weightChange","change":"declaration","weight":60}`, nil, "without athlete"},
		{"unknown", `{"type":"startLifting"}`, nil, "unknown display command"},
		{"garbage", `{`, nil, "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.input), origin)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, origin, got.Origin())
		})
	}
}

func TestEncode(t *testing.T) {
	a := &models.Athlete{LotNumber: 7, LastName: "Evans", FirstName: "Beth", Gender: models.GenderFemale, Team: "North"}
	require.NoError(t, a.SetDeclaration(1, 75))
	require.NoError(t, a.RecordLift(1, 75, 1))

	data, err := Encode("A", uievent.Decision{
		Envelope: eventbus.From("announcer"),
		Athlete:  a,
		Attempt:  1,
		Success:  true,
		Referees: [3]*bool{uievent.Bool(true), uievent.Bool(true), uievent.Bool(false)},
	}, false)
	require.NoError(t, err)

	var msg struct {
		Type     string `json:"type"`
		Platform string `json:"platform"`
		Origin   string `json:"origin"`
		Payload  struct {
			Athlete  AthleteView `json:"athlete"`
			Attempt  int         `json:"attempt"`
			Success  bool        `json:"success"`
			Referees []*bool     `json:"referees"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "decision", msg.Type)
	assert.Equal(t, "A", msg.Platform)
	assert.Equal(t, "announcer", msg.Origin)
	assert.Equal(t, "EVANS, Beth", msg.Payload.Athlete.Name)
	assert.Equal(t, 75, msg.Payload.Athlete.Results[0])
	assert.Equal(t, 2, msg.Payload.Athlete.Attempt)
	assert.True(t, msg.Payload.Success)
	require.Len(t, msg.Payload.Referees, 3)
	assert.False(t, *msg.Payload.Referees[2])

	t.Run("clock events in milliseconds", func(t *testing.T) {
		data, err := Encode("A", uievent.StartTime{TimeRemaining: 90 * time.Second}, false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"startTime","platform":"A","payload":{"time_remaining_ms":90000}}`, string(data))
	})

	t.Run("events without payload", func(t *testing.T) {
		data, err := Encode("A", uievent.GlobalRankingUpdated{}, false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"globalRankingUpdated","platform":"A"}`, string(data))
	})
}

// platformFixture is a field of play on group M1 of the shared fixtures,
// served by a display server.
type platformFixture struct {
	fop    *fieldofplay.FieldOfPlay
	hub    *Hub
	server *httptest.Server
}

func newPlatformFixture(t *testing.T) *platformFixture {
	t.Helper()
	store, err := repository.LoadMemoryStore("../repository/testdata/competition.yaml", repository.MemoryOptions{})
	require.NoError(t, err)
	group, err := store.Groups().FindByName(context.Background(), "M1")
	require.NoError(t, err)

	f := fieldofplay.New(fieldofplay.Config{
		Name:     "A",
		Athletes: store.Athletes(),
		Clock:    clockwork.NewFakeClock(),
	})
	t.Cleanup(f.Close)
	f.Post(fopevent.SwitchGroup{Envelope: eventbus.From("announcer"), Group: group})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.Run(ctx)

	srv := NewServer(0, nil)
	hub := NewHub(f, "a", nil, nil)
	require.NoError(t, srv.Register(hub))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(hub.Close)

	return &platformFixture{fop: f, hub: hub, server: ts}
}

func (p *platformFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws/a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestDisplaysReceiveSnapshotOnConnect(t *testing.T) {
	p := newPlatformFixture(t)
	conn := p.dial(t)

	msg := read(t, conn)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "A", msg.Platform)

	var snap struct {
		State         string      `json:"state"`
		Group         string      `json:"group"`
		Current       AthleteView `json:"current"`
		Next          AthleteView `json:"next"`
		TimeAllowedMs int64       `json:"time_allowed_ms"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, "CURRENT_ATHLETE_DISPLAYED", snap.State)
	assert.Equal(t, "M1", snap.Group)
	assert.Equal(t, 3, snap.Current.Lot, "lowest request, then lowest lot")
	assert.Equal(t, 55, snap.Current.RequestedWeight)
	assert.Equal(t, 4, snap.Next.Lot)
	assert.Equal(t, int64(60000), snap.TimeAllowedMs)

	require.Eventually(t, func() bool { return p.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDisplayCommandsReachFieldOfPlayWithoutEcho(t *testing.T) {
	p := newPlatformFixture(t)
	timer := p.dial(t)
	board := p.dial(t)
	assert.Equal(t, "snapshot", read(t, timer).Type)
	assert.Equal(t, "snapshot", read(t, board).Type)
	require.Eventually(t, func() bool { return p.hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, timer.WriteMessage(websocket.TextMessage, []byte(`{"type":"timeStarted"}`)))
	msg := read(t, board)
	assert.Equal(t, "startTime", msg.Type)
	assert.JSONEq(t, `{"time_remaining_ms":60000}`, string(msg.Payload))
	assert.Equal(t, fieldofplay.TimeRunning, p.fop.State())

	require.NoError(t, board.WriteMessage(websocket.TextMessage, []byte(`{"type":"timeStopped"}`)))
	msg = read(t, timer)
	assert.Equal(t, "stopTime", msg.Type, "the timer never saw the echo of its own start")
	require.Eventually(t, func() bool { return p.fop.State() == fieldofplay.CurrentAthleteDisplayed }, time.Second, 5*time.Millisecond)
}

func TestDisplayCommandErrorsAreReported(t *testing.T) {
	p := newPlatformFixture(t)
	conn := p.dial(t)
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"switchGroup"}`)))
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Payload), "unknown display command")
}

func TestUnknownPlatform(t *testing.T) {
	p := newPlatformFixture(t)

	url := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws/b"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshotEndpoint(t *testing.T) {
	p := newPlatformFixture(t)

	resp, err := http.Get(p.server.URL + "/platforms/a")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"state":"CURRENT_ATHLETE_DISPLAYED"`)

	resp, err = http.Get(p.server.URL + "/platforms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []platformSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Slug)
}

func TestRegisterRejectsDuplicateSlug(t *testing.T) {
	p := newPlatformFixture(t)
	srv := NewServer(0, nil)
	require.NoError(t, srv.Register(p.hub))
	assert.Error(t, srv.Register(p.hub))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://scoreboard.example"})

	r := httptest.NewRequest(http.MethodGet, "/ws/a", nil)
	assert.True(t, check(r), "no origin header")

	r.Header.Set("Origin", "https://scoreboard.example")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://elsewhere.example")
	assert.False(t, check(r))

	assert.True(t, originChecker(nil)(r), "no allow list")
}
