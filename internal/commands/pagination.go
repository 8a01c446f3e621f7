package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
	"github.com/vuongmanhnghia/guild-player/internal/validation"
)

const (
	itemsPerPage   = 10
	maxTitleLength = 50
)

// createPaginationButtons creates navigation buttons for pagination
func createPaginationButtons(page, totalPages int, customIDPrefix string) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}

	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "⏮️", // First
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:first", customIDPrefix),
			Disabled: page == 0,
		},
		discordgo.Button{
			Label:    "◀️", // Previous
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("%s:prev", customIDPrefix),
			Disabled: page == 0,
		},
		discordgo.Button{
			Label:    fmt.Sprintf("Page %d/%d", page+1, totalPages),
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:current:%d", customIDPrefix, page),
			Disabled: true,
		},
		discordgo.Button{
			Label:    "▶️", // Next
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("%s:next", customIDPrefix),
			Disabled: page >= totalPages-1,
		},
		discordgo.Button{
			Label:    "⏭️", // Last
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:last", customIDPrefix),
			Disabled: page >= totalPages-1,
		},
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: buttons,
		},
	}
}

func pageCount(total int) int {
	return (total + itemsPerPage - 1) / itemsPerPage
}

func pageBounds(page, total int) (int, int) {
	start := page * itemsPerPage
	end := start + itemsPerPage
	if end > total {
		end = total
	}
	return start, end
}

// buildQueuePage lists the current item followed by the queued ones
func buildQueuePage(snap *playback.SessionSnapshot, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	var items []*entities.PlayItem
	if snap != nil {
		if snap.NowPlaying != nil {
			items = append(items, snap.NowPlaying)
		}
		items = append(items, snap.Queued...)
	}

	if len(items) == 0 {
		return NewEmbed().
			Title("Queue").
			Description("The queue is empty. Use `/play` to add songs!").
			Color(ColorInfo).
			Build(), nil
	}

	total := len(items)
	totalPages := pageCount(total)
	page = validation.ValidatePage(page, totalPages)
	start, end := pageBounds(page, total)

	var sb strings.Builder
	for i := start; i < end; i++ {
		item := items[i]
		indicator := fmt.Sprintf("`%2d.`", i+1)
		if i == 0 && snap.NowPlaying != nil {
			indicator += " ►"
		}
		title := validation.TruncateString(item.DisplayName(), maxTitleLength)
		sb.WriteString(fmt.Sprintf("%s **%s** `[%s]`\n", indicator, title, item.DurationFormatted()))
	}

	embed := NewEmbed().
		Title(fmt.Sprintf("Music Queue (Page %d/%d)", page+1, totalPages)).
		Description(sb.String()).
		Color(ColorPrimary).
		Footer(fmt.Sprintf("Total: %d songs • Showing %d-%d", total, start+1, end)).
		Build()

	return embed, createPaginationButtons(page, totalPages, "queue")
}

// buildHistoryPage lists past plays, newest first
func buildHistoryPage(records []*entities.PlayRecord, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	if len(records) == 0 {
		return NewEmbed().
			Title("History").
			Description("Nothing has been played yet").
			Color(ColorInfo).
			Build(), nil
	}

	total := len(records)
	totalPages := pageCount(total)
	page = validation.ValidatePage(page, totalPages)
	start, end := pageBounds(page, total)

	var sb strings.Builder
	for i := start; i < end; i++ {
		record := records[i]
		title := validation.TruncateString(record.Title, maxTitleLength)
		if record.SourceURL != "" {
			title = fmt.Sprintf("[%s](%s)", title, record.SourceURL)
		}
		sb.WriteString(fmt.Sprintf("`%2d.` %s • %s <t:%d:R>\n", i+1, title, record.RequestedBy, record.PlayedAt.Unix()))
	}

	embed := NewEmbed().
		Title(fmt.Sprintf("Play History (Page %d/%d)", page+1, totalPages)).
		Description(sb.String()).
		Color(ColorPrimary).
		Footer(fmt.Sprintf("Total: %d plays • Showing %d-%d", total, start+1, end)).
		Build()

	return embed, createPaginationButtons(page, totalPages, "history")
}

// pageFromTitle extracts the 0-indexed page from "... (Page X/Y)"
func pageFromTitle(title string) int {
	idx := strings.Index(title, "(Page ")
	if idx < 0 {
		return 0
	}
	rest := title[idx+len("(Page "):]
	end := strings.Index(rest, "/")
	if end <= 0 {
		return 0
	}
	page, err := strconv.Atoi(rest[:end])
	if err != nil || page < 1 {
		return 0
	}
	return page - 1
}

// targetPage applies a pagination button action to the current page
func targetPage(action string, current, totalPages int) (int, bool) {
	switch action {
	case "first":
		return 0, true
	case "prev":
		if current > 0 {
			current--
		}
		return current, true
	case "next":
		if current < totalPages-1 {
			current++
		}
		return current, true
	case "last":
		if totalPages == 0 {
			return 0, true
		}
		return totalPages - 1, true
	default:
		// "current" is a disabled label
		return 0, false
	}
}
