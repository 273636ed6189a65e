// ABOUTME: Renders stored embeds and deletion alerts as readable text
// ABOUTME: Applies role reference rewriting to every text field

package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389/staffbot/internal/platform"
	"github.com/2389/staffbot/internal/store"
)

const (
	contentLimit     = 1000
	descriptionLimit = 500
	maxFields        = 5
	alertLimit       = 4096 // platform cap on embed descriptions

	noContent         = "No content available"
	unknownAuthor     = "Unknown"
	storedEmbedsNote  = "Message contained embeds (see below)"
	missingEmbedsNote = "Message contained embeds (not stored)"
)

// truncate shortens s to max runes, adding "..." if it was cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// RenderEmbeds turns the stored JSON embed payload into a text block.
func RenderEmbeds(data string, roles RoleResolver) string {
	if data == "" {
		return ""
	}
	var embeds []*platform.Embed
	if err := json.Unmarshal([]byte(data), &embeds); err != nil {
		return "\n**📋 Embed Content:** Could not parse embed data"
	}

	var b strings.Builder
	b.WriteString("\n**📋 Embed Content:**\n")
	for i, e := range embeds {
		if e == nil {
			continue
		}
		if e.Title != "" {
			fmt.Fprintf(&b, "**Title:** %s\n", RewriteRoleRefs(e.Title, roles))
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "**Description:** %s\n", truncate(RewriteRoleRefs(e.Description, roles), descriptionLimit))
		}
		if len(e.Fields) > 0 {
			b.WriteString("**Fields:**\n")
			for j, f := range e.Fields {
				if j == maxFields {
					break
				}
				fmt.Fprintf(&b, "   • %s: %s\n", RewriteRoleRefs(f.Name, roles), RewriteRoleRefs(f.Value, roles))
			}
			if extra := len(e.Fields) - maxFields; extra > 0 {
				fmt.Fprintf(&b, "   • ... and %d more fields\n", extra)
			}
		}
		if e.Footer != nil {
			fmt.Fprintf(&b, "**Footer:** %s\n", RewriteRoleRefs(e.Footer.Text, roles))
		}
		if e.Author != nil {
			fmt.Fprintf(&b, "**Author:** %s\n", RewriteRoleRefs(e.Author.Name, roles))
		}
		if e.Color != 0 {
			fmt.Fprintf(&b, "**Color:** #%06x\n", e.Color)
		}
		if i < len(embeds)-1 {
			b.WriteString("\n---\n")
		}
	}
	return b.String()
}

// Reconstruction is what the auditor knows about a deleted message
type Reconstruction struct {
	Author    string
	Content   string
	EmbedInfo string
	FromStore bool
}

// Reconstruct builds the author and content lines from the stored copy when
// present, otherwise from whatever the gateway delivered with the event.
func Reconstruct(stored *store.StoredMessage, cached *platform.Message, roles RoleResolver) Reconstruction {
	r := Reconstruction{Author: unknownAuthor, Content: noContent}

	if stored != nil {
		r.FromStore = true
		if stored.AuthorTag != "" {
			r.Author = stored.AuthorTag
		}
		switch {
		case strings.TrimSpace(stored.Content) != "":
			r.Content = truncate(RewriteRoleRefs(stored.Content, roles), contentLimit)
		case stored.EmbedData != "":
			r.EmbedInfo = RenderEmbeds(stored.EmbedData, roles)
			r.Content = storedEmbedsNote
		}
		return r
	}

	if cached == nil {
		return r
	}
	if cached.Author != nil {
		r.Author = cached.Author.Tag()
	}
	switch {
	case cached.Content != "":
		r.Content = RewriteRoleRefs(cached.Content, roles)
	case len(cached.Embeds) > 0:
		r.Content = missingEmbedsNote
	}
	return r
}

// AlertText is the body of the operator alert.
func AlertText(channelID string, r Reconstruction, deletedAt time.Time) string {
	text := fmt.Sprintf("**Channel:** <#%s>\n**Author:** %s\n**Content:** %s%s\n**Deleted at:** <t:%d:F>",
		channelID, r.Author, r.Content, r.EmbedInfo, deletedAt.Unix())
	return truncate(text, alertLimit-len("..."))
}
