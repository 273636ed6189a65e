// ABOUTME: Mirrors staff alerts into a Matrix room via mautrix
// ABOUTME: Alerts are flattened to markdown and rendered to HTML with goldmark

package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/staffbot/internal/platform"
)

// MatrixMirror posts alerts as notices to one Matrix room
type MatrixMirror struct {
	client *mautrix.Client
	roomID id.RoomID
	md     goldmark.Markdown
}

// NewMatrixMirror creates a mirror authenticated with an access token.
func NewMatrixMirror(homeserver, userID, accessToken, roomID string) (*MatrixMirror, error) {
	client, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &MatrixMirror{
		client: client,
		roomID: id.RoomID(roomID),
		md:     goldmark.New(),
	}, nil
}

// Mirror sends msg to the room.
func (m *MatrixMirror) Mirror(ctx context.Context, msg *platform.OutgoingMessage) error {
	content, err := m.render(msg)
	if err != nil {
		return err
	}
	if _, err := m.client.SendMessageEvent(ctx, m.roomID, event.EventMessage, content); err != nil {
		return fmt.Errorf("sending to matrix room %s: %w", m.roomID, err)
	}
	return nil
}

func (m *MatrixMirror) render(msg *platform.OutgoingMessage) (*event.MessageEventContent, error) {
	body := Markdown(msg)

	var html bytes.Buffer
	if err := m.md.Convert([]byte(body), &html); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	return &event.MessageEventContent{
		MsgType:       event.MsgNotice,
		Body:          body,
		Format:        event.FormatHTML,
		FormattedBody: strings.TrimSpace(html.String()),
	}, nil
}

// Markdown flattens a message and its embeds into one markdown document.
func Markdown(msg *platform.OutgoingMessage) string {
	var parts []string
	if msg.Content != "" {
		parts = append(parts, msg.Content)
	}
	for _, e := range msg.Embeds {
		var b strings.Builder
		if e.Title != "" {
			fmt.Fprintf(&b, "**%s**\n\n", e.Title)
		}
		if e.Description != "" {
			b.WriteString(e.Description)
			b.WriteString("\n\n")
		}
		for _, f := range e.Fields {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, f.Value)
		}
		if e.Footer != nil && e.Footer.Text != "" {
			fmt.Fprintf(&b, "\n_%s_\n", e.Footer.Text)
		}
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return strings.Join(parts, "\n\n")
}
