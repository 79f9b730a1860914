package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-maxbridge/core"
)

func int64Value(value any) (int64, bool) {
	switch typed := value.(type) {
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return parsed, true
		}
		if parsed, err := typed.Float64(); err == nil && parsed == math.Trunc(parsed) {
			return int64(parsed), true
		}
	case float64:
		if typed == math.Trunc(typed) {
			return int64(typed), true
		}
	case int:
		return int64(typed), true
	case int64:
		return typed, true
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func mapValue(value any) map[string]any {
	typed, _ := value.(map[string]any)
	return typed
}

func listValue(value any) []any {
	typed, _ := value.([]any)
	return typed
}

// parseProfile reads payload.profile.contact.
func parseProfile(payload map[string]any) *core.Profile {
	contact := mapValue(mapValue(payload["profile"])["contact"])
	if contact == nil {
		return nil
	}
	id, ok := int64Value(contact["id"])
	if !ok {
		return nil
	}
	profile := &core.Profile{
		ID:    id,
		Phone: stringValue(contact["phone"]),
	}
	for _, raw := range listValue(contact["names"]) {
		name := mapValue(raw)
		if name == nil {
			continue
		}
		profile.FirstName = stringValue(name["firstName"])
		profile.LastName = stringValue(name["lastName"])
		if profile.FirstName == "" {
			profile.FirstName = stringValue(name["name"])
		}
		break
	}
	return profile
}

// parseLoginToken reads payload.tokenAttrs.LOGIN.token.
func parseLoginToken(payload map[string]any) string {
	attrs := mapValue(payload["tokenAttrs"])
	return strings.TrimSpace(stringValue(mapValue(attrs["LOGIN"])["token"]))
}

func parseChatIDs(payload map[string]any) []int64 {
	chats := listValue(payload["chats"])
	ids := make([]int64, 0, len(chats))
	for _, raw := range chats {
		if id, ok := int64Value(mapValue(raw)["id"]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseChats(payload map[string]any) []core.Chat {
	raw := listValue(payload["chats"])
	chats := make([]core.Chat, 0, len(raw))
	for _, item := range raw {
		fields := mapValue(item)
		id, ok := int64Value(fields["id"])
		if !ok {
			continue
		}
		chat := core.Chat{
			ID:    id,
			Title: stringValue(fields["title"]),
			Type:  stringValue(fields["type"]),
		}
		if photoID, ok := int64Value(fields["photoId"]); ok {
			chat.PhotoID = &photoID
		}
		for _, key := range []string{"unreadCount", "newMessages"} {
			if unread, ok := int64Value(fields[key]); ok {
				chat.UnreadCount = int(unread)
				break
			}
		}
		chats = append(chats, chat)
	}
	return chats
}

func parseMessages(payload map[string]any, chatID int64) []core.Message {
	raw := listValue(payload["messages"])
	messages := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		fields := mapValue(item)
		if fields == nil {
			continue
		}
		message := core.Message{
			ID:     stringValue(fields["id"]),
			ChatID: chatID,
			Text:   stringValue(fields["text"]),
			Type:   stringValue(fields["type"]),
		}
		if sender, ok := int64Value(fields["sender"]); ok {
			message.SenderID = &sender
		}
		if date, ok := int64Value(fields["time"]); ok {
			message.Date = &date
		}
		messages = append(messages, message)
	}
	return messages
}
