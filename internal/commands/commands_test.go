package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vuongmanhnghia/guild-player/internal/database"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
	"github.com/vuongmanhnghia/guild-player/internal/services"
	"github.com/vuongmanhnghia/guild-player/internal/services/audio"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
	"github.com/vuongmanhnghia/guild-player/internal/services/resolver"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	_ playback.Notifier = (*NowPlayingNotifier)(nil)
	_ HistoryStore      = (*services.HistoryService)(nil)
	_ HistoryReporter   = (*services.HistoryService)(nil)
	_ CacheReporter     = (*resolver.Resolver)(nil)
	_ VoiceReporter     = (*audio.AudioService)(nil)
	_ DatabaseReporter  = (*database.DB)(nil)
)

var testRequester = entities.Requester{
	GuildID:   "guild-1",
	ChannelID: "text-1",
	UserID:    "42",
	Username:  "alice",
	AvatarURL: "https://cdn.example/avatar.png",
}

func resolvedItem(title string) *entities.PlayItem {
	return entities.NewResolvedItem(
		"https://stream.example/"+title,
		3*time.Minute+5*time.Second,
		testRequester,
		valueobjects.MediaInfo{
			Title:        title,
			ThumbnailURL: "https://img.example/" + title + ".jpg",
			SourceURL:    "https://example.com/watch?v=" + title,
		},
	)
}

func TestGetCommands(t *testing.T) {
	expected := []string{
		"play", "pause", "resume", "skip", "stop",
		"queue", "nowplaying", "clear", "history",
		"join", "leave", "stats", "help", "sync",
	}

	names := make(map[string]bool)
	for _, cmd := range GetCommands() {
		if names[cmd.Name] {
			t.Errorf("Duplicate command %q", cmd.Name)
		}
		names[cmd.Name] = true
	}

	for _, name := range expected {
		if !names[name] {
			t.Errorf("Missing command %q", name)
		}
	}
	if len(names) != len(expected) {
		t.Errorf("Expected %d commands, got %d", len(expected), len(names))
	}
}

func TestBuildNowPlayingEmbed(t *testing.T) {
	embed := BuildNowPlayingEmbed(resolvedItem("song"))

	if embed.Title != "Now Playing" {
		t.Errorf("Unexpected title %q", embed.Title)
	}
	if embed.Description != "[song](https://example.com/watch?v=song)" {
		t.Errorf("Unexpected description %q", embed.Description)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://img.example/song.jpg" {
		t.Errorf("Unexpected thumbnail %+v", embed.Thumbnail)
	}
	if embed.Author == nil || embed.Author.Name != "alice" || embed.Author.IconURL != testRequester.AvatarURL {
		t.Errorf("Unexpected author %+v", embed.Author)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Value != "03:05" {
		t.Errorf("Unexpected fields %+v", embed.Fields)
	}
}

func TestBuildNowPlayingEmbedLocalItem(t *testing.T) {
	item := entities.NewLocalItem("./misc/slavi.wav", 39*time.Second, entities.Requester{GuildID: "g"})
	embed := BuildNowPlayingEmbed(item)

	if embed.Description != "**./misc/slavi.wav**" {
		t.Errorf("Unexpected description %q", embed.Description)
	}
	if embed.Thumbnail != nil {
		t.Error("Local item should have no thumbnail")
	}
	if embed.Author != nil {
		t.Error("Anonymous requester should have no author")
	}
}

func TestBuildEnqueuedEmbed(t *testing.T) {
	if got := buildEnqueuedEmbed(resolvedItem("a"), true).Title; got != "🎵 Starting Playback" {
		t.Errorf("Unexpected title %q", got)
	}
	if got := buildEnqueuedEmbed(resolvedItem("a"), false).Title; got != "🎵 Added to Queue" {
		t.Errorf("Unexpected title %q", got)
	}
}

func TestBuildQueuePageEmpty(t *testing.T) {
	for _, snap := range []*playback.SessionSnapshot{nil, {GuildID: "g"}} {
		embed, components := buildQueuePage(snap, 0)
		if embed.Title != "Queue" {
			t.Errorf("Unexpected title %q", embed.Title)
		}
		if components != nil {
			t.Error("Empty queue should have no buttons")
		}
	}
}

func TestBuildQueuePage(t *testing.T) {
	snap := &playback.SessionSnapshot{
		GuildID:    "g",
		State:      valueobjects.SessionActive,
		NowPlaying: resolvedItem("current"),
	}
	for i := 0; i < 12; i++ {
		snap.Queued = append(snap.Queued, resolvedItem(fmt.Sprintf("queued-%d", i)))
	}

	embed, components := buildQueuePage(snap, 0)
	if embed.Title != "Music Queue (Page 1/2)" {
		t.Errorf("Unexpected title %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "►") || !strings.Contains(embed.Description, "current") {
		t.Errorf("Current item should be highlighted: %q", embed.Description)
	}
	if len(components) != 1 {
		t.Fatalf("Expected one row of buttons, got %d", len(components))
	}

	// Out of range pages clamp to the last page
	embed, _ = buildQueuePage(snap, 7)
	if embed.Title != "Music Queue (Page 2/2)" {
		t.Errorf("Unexpected title %q", embed.Title)
	}
	if strings.Contains(embed.Description, "►") {
		t.Error("Second page should not contain the current item")
	}
	if !strings.Contains(embed.Description, "queued-11") {
		t.Errorf("Last page should list the last item: %q", embed.Description)
	}
}

func TestBuildHistoryPage(t *testing.T) {
	embed, components := buildHistoryPage(nil, 0)
	if embed.Title != "History" || components != nil {
		t.Errorf("Unexpected empty history page %q", embed.Title)
	}

	records := []*entities.PlayRecord{
		{Title: "newest", SourceURL: "https://example.com/1", RequestedBy: "alice", PlayedAt: time.Unix(1700000000, 0)},
		{Title: "oldest", RequestedBy: "bob", PlayedAt: time.Unix(1600000000, 0)},
	}
	embed, components = buildHistoryPage(records, 0)
	if embed.Title != "Play History (Page 1/1)" {
		t.Errorf("Unexpected title %q", embed.Title)
	}
	if components != nil {
		t.Error("Single page should have no buttons")
	}
	if !strings.Contains(embed.Description, "[newest](https://example.com/1)") {
		t.Errorf("Expected linked title: %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "<t:1600000000:R>") {
		t.Errorf("Expected relative timestamp: %q", embed.Description)
	}
	if strings.Index(embed.Description, "newest") > strings.Index(embed.Description, "oldest") {
		t.Error("Records should keep their order")
	}
}

func TestCreatePaginationButtons(t *testing.T) {
	if createPaginationButtons(0, 1, "queue") != nil {
		t.Error("Single page should have no buttons")
	}

	rows := createPaginationButtons(0, 3, "queue")
	row, ok := rows[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("Expected ActionsRow, got %T", rows[0])
	}
	if len(row.Components) != 5 {
		t.Fatalf("Expected 5 buttons, got %d", len(row.Components))
	}

	first := row.Components[0].(discordgo.Button)
	next := row.Components[3].(discordgo.Button)
	if !first.Disabled {
		t.Error("First button should be disabled on the first page")
	}
	if next.Disabled || next.CustomID != "queue:next" {
		t.Errorf("Unexpected next button %+v", next)
	}
}

func TestPageFromTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected int
	}{
		{"Music Queue (Page 3/5)", 2},
		{"Play History (Page 1/1)", 0},
		{"Queue", 0},
		{"Music Queue (Page x/5)", 0},
		{"Music Queue (Page 0/5)", 0},
	}

	for _, tt := range tests {
		if got := pageFromTitle(tt.title); got != tt.expected {
			t.Errorf("pageFromTitle(%q) = %d, expected %d", tt.title, got, tt.expected)
		}
	}
}

func TestTargetPage(t *testing.T) {
	tests := []struct {
		action   string
		current  int
		total    int
		expected int
		ok       bool
	}{
		{"first", 3, 5, 0, true},
		{"prev", 3, 5, 2, true},
		{"prev", 0, 5, 0, true},
		{"next", 3, 5, 4, true},
		{"next", 4, 5, 4, true},
		{"last", 0, 5, 4, true},
		{"last", 0, 0, 0, true},
		{"current", 2, 5, 0, false},
	}

	for _, tt := range tests {
		got, ok := targetPage(tt.action, tt.current, tt.total)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("targetPage(%s, %d, %d) = %d, %v, expected %d, %v",
				tt.action, tt.current, tt.total, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestRequesterFrom(t *testing.T) {
	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			GuildID:   "guild-1",
			ChannelID: "text-1",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "42", Username: "alice"},
			},
		},
	}

	req := requesterFrom(i)
	if req.GuildID != "guild-1" || req.ChannelID != "text-1" || req.UserID != "42" || req.Username != "alice" {
		t.Errorf("Unexpected requester %+v", req)
	}

	anonymous := requesterFrom(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{GuildID: "g"}})
	if anonymous.UserID != "" || anonymous.AvatarURL != "" {
		t.Errorf("Unexpected requester %+v", anonymous)
	}
}

func TestBuildHelpEmbed(t *testing.T) {
	embed := buildHelpEmbed("Guild Player", "1.0.0")

	var text strings.Builder
	for _, field := range embed.Fields {
		text.WriteString(field.Value)
	}

	for _, cmd := range GetCommands() {
		if !strings.Contains(text.String(), "/"+cmd.Name) {
			t.Errorf("Help does not mention /%s", cmd.Name)
		}
	}
	if !strings.Contains(embed.Footer.Text, "v1.0.0") {
		t.Errorf("Unexpected footer %q", embed.Footer.Text)
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "song", "songs"); got != "1 song" {
		t.Errorf("Unexpected %q", got)
	}
	if got := pluralize(3, "song", "songs"); got != "3 songs" {
		t.Errorf("Unexpected %q", got)
	}
}

type fakeCache struct{}

func (fakeCache) CacheStats() (hits, misses, evictions int64, size int) { return 3, 1, 2, 7 }
func (fakeCache) CacheHitRate() float64                                 { return 0.75 }

type fakeVoice struct{}

func (fakeVoice) GetStats() audio.Stats {
	return audio.Stats{ActiveConnections: 2, ActivePlayers: 1, TotalConnections: 3}
}

type fakeHistoryStats struct{}

func (fakeHistoryStats) GetStats() services.HistoryStats {
	return services.HistoryStats{Written: 10, Failed: 1, Pending: 2}
}

type fakeDatabase struct {
	err error
}

func (d fakeDatabase) Health(ctx context.Context) error { return d.err }
func (d fakeDatabase) Stats() *pgxpool.Stat             { return nil }

func embedField(embed *discordgo.MessageEmbed, name string) (string, bool) {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func TestCollectStats(t *testing.T) {
	registry := playback.NewRegistry(nil, playback.Options{}, logger.Discard())
	defer registry.Shutdown()

	h := &Handler{
		registry: registry,
		stats: StatsSources{
			Cache:    fakeCache{},
			Voice:    fakeVoice{},
			History:  fakeHistoryStats{},
			Database: fakeDatabase{err: errors.New("connection refused")},
		},
	}

	report := h.collectStats(4, 150)
	if report.Servers != 4 || report.Sessions != 0 || report.LatencyMs != 150 {
		t.Errorf("Unexpected basics %+v", report)
	}
	if report.Cache == nil || report.Cache.HitRate != 0.75 || report.Cache.Size != 7 || report.Cache.Evictions != 2 {
		t.Errorf("Unexpected cache report %+v", report.Cache)
	}
	if report.Voice == nil || report.Voice.ActiveConnections != 2 {
		t.Errorf("Unexpected voice report %+v", report.Voice)
	}
	if report.History == nil || report.History.Written != 10 {
		t.Errorf("Unexpected history report %+v", report.History)
	}
	if report.Database == nil || report.Database.Healthy {
		t.Errorf("Expected an unhealthy database, got %+v", report.Database)
	}

	embed := buildStatsEmbed(report, "Guild Player", "1.0.0")
	expected := map[string]string{
		"Voice":          "2 connected, 1 streaming",
		"Resolver Cache": "75% hits, 7 cached, 2 evicted",
		"History Writes": "10 written, 1 failed, 2 pending",
		"Database":       "🔴 Unreachable (0/0 conns in use, 0 idle)",
		"Latency":        "150ms 🟡 Moderate",
	}
	for name, value := range expected {
		got, ok := embedField(embed, name)
		if !ok {
			t.Errorf("Missing %s field", name)
			continue
		}
		if got != value {
			t.Errorf("%s: expected %q, got %q", name, value, got)
		}
	}
}

func TestBuildStatsEmbedWithoutSources(t *testing.T) {
	h := &Handler{registry: playback.NewRegistry(nil, playback.Options{}, logger.Discard())}

	embed := buildStatsEmbed(h.collectStats(1, 20), "Guild Player", "1.0.0")

	if len(embed.Fields) != 3 {
		t.Errorf("Expected only the basic fields, got %d", len(embed.Fields))
	}
	for _, name := range []string{"Voice", "Resolver Cache", "History Writes", "Database"} {
		if _, ok := embedField(embed, name); ok {
			t.Errorf("Unexpected %s field without a source", name)
		}
	}
}

func TestBoolOption(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "query", Type: discordgo.ApplicationCommandOptionString, Value: "clear"},
		{Name: "clear", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}

	if !boolOption(options, "clear") {
		t.Error("Expected clear to be set")
	}
	if boolOption(options, "query") {
		t.Error("A string option is not a boolean")
	}
	if boolOption(nil, "clear") {
		t.Error("Absent option must read as false")
	}
}

func TestHistoryCommandHasClearOption(t *testing.T) {
	for _, cmd := range GetCommands() {
		if cmd.Name != "history" {
			continue
		}
		if len(cmd.Options) != 1 || cmd.Options[0].Name != "clear" || cmd.Options[0].Required {
			t.Errorf("Expected an optional clear flag on /history, got %+v", cmd.Options)
		}
		return
	}
	t.Fatal("history command missing")
}
